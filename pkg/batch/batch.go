// Package batch partitions a job's device list into scheduling units and
// computes the inter-batch pacing delay. Pure functions, no I/O, so the
// orchestrator's concurrency never leaks into scheduling decisions.
package batch

import "time"

// Partition splits deviceIDs into ordered batches of size batchSize. A
// non-positive batchSize yields a single batch holding every device. All
// batches except possibly the last hold exactly batchSize devices, and the
// concatenation of all batches preserves the original order.
func Partition(deviceIDs []string, batchSize int) [][]string {
	if len(deviceIDs) == 0 {
		return nil
	}
	if batchSize <= 0 || batchSize >= len(deviceIDs) {
		return [][]string{deviceIDs}
	}

	batches := make([][]string, 0, (len(deviceIDs)+batchSize-1)/batchSize)
	for start := 0; start < len(deviceIDs); start += batchSize {
		end := start + batchSize
		if end > len(deviceIDs) {
			end = len(deviceIDs)
		}
		batches = append(batches, deviceIDs[start:end])
	}
	return batches
}

// NextDelay returns how long to wait before issuing the next batch so the
// average processing rate stays at rateLimit devices per hour. A zero rate
// means unlimited: no delay is inserted.
func NextDelay(rateLimit int, batchDeviceCount int) time.Duration {
	if rateLimit <= 0 || batchDeviceCount <= 0 {
		return 0
	}
	// batchDeviceCount / (rateLimit/60) minutes between batch starts.
	minutes := float64(batchDeviceCount) / (float64(rateLimit) / 60.0)
	return time.Duration(minutes * float64(time.Minute))
}
