//go:build !linux

package heterodyne

// CheckRealtimeEnvironment has nothing to inspect off Linux.
func CheckRealtimeEnvironment() {}
