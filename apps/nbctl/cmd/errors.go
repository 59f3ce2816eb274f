package cmd

import (
	"log"

	sdkerrors "github.com/netbatch/netbatch/pkg/nsdk/nerr"
)

// exitIfSdkError inspects errors returned from the SDK and emits user-friendly
// guidance before exiting. Non-SDK errors fall back to log.Fatalf.
func exitIfSdkError(err error) {
	if err == nil {
		return
	}
	switch {
	case sdkerrors.IsCode(err, sdkerrors.CodeUnreachable):
		log.Fatalf("cannot reach the netbatch server: check --base-url or NETBATCH_BASEURL (%v)", err)
	case sdkerrors.IsCode(err, sdkerrors.CodeNotFound):
		log.Fatalf("not found: %v", err)
	case sdkerrors.IsCode(err, sdkerrors.CodeConflict):
		log.Fatalf("conflict: %v", err)
	default:
		log.Fatalf("%v", err)
	}
}
