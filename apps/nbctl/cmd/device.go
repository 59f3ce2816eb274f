package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/netbatch/netbatch/pkg/napi/schemas"
)

var (
	devName           string
	devAddress        string
	devPort           int
	devProtocol       string
	devPlatform       string
	devUsername       string
	devPassword       string
	devEnablePassword string
	devCountry        string
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage the device inventory",
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory devices",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		devices, err := client.ListDevices(context.Background())
		if err != nil {
			exitIfSdkError(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tADDRESS\tPROTOCOL\tPLATFORM\tGROUP")
		for _, d := range devices {
			addr := d.Address
			if d.Port != 0 {
				addr = fmt.Sprintf("%s:%d", d.Address, d.Port)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, addr, d.Protocol, d.Platform, d.CountryCode)
		}
		w.Flush()
	},
}

var deviceAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a device to the inventory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		dev, err := client.CreateDevice(context.Background(), schemas.CreateDeviceRequest{
			ID:             args[0],
			Name:           devName,
			Address:        devAddress,
			Port:           devPort,
			Protocol:       devProtocol,
			Platform:       devPlatform,
			Username:       devUsername,
			Password:       devPassword,
			EnablePassword: devEnablePassword,
			CountryCode:    devCountry,
		})
		if err != nil {
			exitIfSdkError(err)
		}

		fmt.Printf("✅ Device added: %s (%s, %s)\n", dev.ID, dev.Address, dev.Protocol)
	},
}

var deviceSetCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Update a device",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		dev, err := client.UpdateDevice(context.Background(), args[0], schemas.UpdateDeviceRequest{
			Name:           devName,
			Address:        devAddress,
			Port:           devPort,
			Protocol:       devProtocol,
			Platform:       devPlatform,
			Username:       devUsername,
			Password:       devPassword,
			EnablePassword: devEnablePassword,
			CountryCode:    devCountry,
		})
		if err != nil {
			exitIfSdkError(err)
		}

		fmt.Printf("✅ Device updated: %s (%s, %s)\n", dev.ID, dev.Address, dev.Protocol)
	},
}

var deviceGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one device",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		dev, err := client.GetDevice(context.Background(), args[0])
		if err != nil {
			exitIfSdkError(err)
		}

		fmt.Printf("ID: %s\n", dev.ID)
		fmt.Printf("Name: %s\n", dev.Name)
		fmt.Printf("Address: %s\n", dev.Address)
		if dev.Port != 0 {
			fmt.Printf("Port: %d\n", dev.Port)
		}
		fmt.Printf("Protocol: %s\n", dev.Protocol)
		fmt.Printf("Platform: %s\n", dev.Platform)
		fmt.Printf("Group: %s\n", dev.CountryCode)
		fmt.Printf("Per-device password: %v\n", dev.HasPassword)
	},
}

var deviceRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a device from the inventory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		if err := client.DeleteDevice(context.Background(), args[0]); err != nil {
			exitIfSdkError(err)
		}
		fmt.Printf("✅ Device removed: %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(deviceListCmd, deviceAddCmd, deviceSetCmd, deviceGetCmd, deviceRmCmd)

	for _, c := range []*cobra.Command{deviceAddCmd, deviceSetCmd} {
		c.Flags().StringVar(&devName, "name", "", "Human-readable name")
		c.Flags().StringVar(&devAddress, "address", "", "Host or IP address")
		c.Flags().IntVar(&devPort, "port", 0, "Port (protocol default if omitted)")
		c.Flags().StringVar(&devProtocol, "protocol", "", "ssh or telnet")
		c.Flags().StringVar(&devPlatform, "platform", "", "Platform key, e.g. cisco_ios, huawei_vrp, linux")
		c.Flags().StringVar(&devUsername, "username", "", "Login username override")
		c.Flags().StringVar(&devPassword, "password", "", "Login password override")
		c.Flags().StringVar(&devEnablePassword, "enable-password", "", "Privileged-mode password")
		c.Flags().StringVar(&devCountry, "group", "", "Grouping key for progress rollups")
	}
}
