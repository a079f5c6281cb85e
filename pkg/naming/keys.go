package naming

import "fmt"

// Queue keys are deterministic so that deriving the same unit of work twice
// collapses to one queued item.

// CheckKey is the key of a title's recurring chapter check.
func CheckKey(title string) string {
	return "check_" + Sanitize(title) + "_chapters"
}

// CheckNowKey is the key of a one-shot chapter check.
func CheckNowKey(title string) string {
	return CheckKey(title) + "_now"
}

// RecheckKey is the key of a delayed one-shot check. It is distinct from
// CheckNowKey so it is not absorbed by a check that is already running.
func RecheckKey(title string) string {
	return CheckKey(title) + "_recheck"
}

// DownloadKey is the key of a chapter download work item.
func DownloadKey(title string, index int) string {
	return fmt.Sprintf("%s_%d_download", Sanitize(title), index)
}

// FixKey is the key of a title's out-of-sync fix work item.
func FixKey(title string) string {
	return "fix_" + Sanitize(title) + "_out_of_sync"
}

// MetadataKey is the key of a title's metadata update.
func MetadataKey(title string) string {
	return "metadata_" + Sanitize(title)
}

// NotifyKey is the key of a chapter notification.
func NotifyKey(title string, index int) string {
	return fmt.Sprintf("%s_%d_notify", Sanitize(title), index)
}

// IntegrationKey is the key of a title's integration refresh. Several chapter
// downloads in a row collapse into one refresh.
func IntegrationKey(title string) string {
	return "integrate_" + Sanitize(title)
}
