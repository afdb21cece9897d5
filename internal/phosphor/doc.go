// Package phosphor connects the power LED daemon to the OpenBMC D-Bus
// services that report host power state and POST codes.
//
// # Objects
//
//	xyz.openbmc_project.State.Host
//	    /xyz/openbmc_project/state/host{N}          CurrentHostState (s)
//	xyz.openbmc_project.State.Boot.Raw
//	    /xyz/openbmc_project/state/boot/raw{N}       Value (tay)
//	xyz.openbmc_project.State.Boot.PostCode{N}
//	    /xyz/openbmc_project/State/Boot/PostCode{N}  GetPostCodes(q) -> a(tay)
//
// The client queries the host state and the POST code history of the
// current boot cycle once at startup, then turns PropertiesChanged signals
// into tracker events. All signals are delivered from a single goroutine in
// bus order.
//
// # Debugging with busctl
//
// Watch the signals the daemon consumes:
//
//	busctl monitor --match "type='signal',member='PropertiesChanged',path='/xyz/openbmc_project/state/boot/raw0'"
//	busctl monitor --match "type='signal',member='PropertiesChanged',path='/xyz/openbmc_project/state/host0'"
//
// Read the POST code history the daemon reconciles at startup:
//
//	busctl call xyz.openbmc_project.State.Boot.PostCode0 \
//	    /xyz/openbmc_project/State/Boot/PostCode0 \
//	    xyz.openbmc_project.State.Boot.PostCode GetPostCodes q 1
package phosphor
