package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the ID identifying this host in reports. The ID is
// hashed so the raw machine ID is never published.
func MachineID() string {
	id, err := machineid.ProtectedID("picoboot")
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return "unknown"
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return id
}
