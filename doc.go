// Package ardrone implements a client for the AR.Drone 2.0 control
// protocol: the AT command channel, the navdata telemetry feed, the
// TCP configuration protocol, the piloting control cadence and the
// PaVE-framed video stream. A host application embeds Drone, drives
// Update in a loop, and subscribes to navdata or video callbacks.
package ardrone

