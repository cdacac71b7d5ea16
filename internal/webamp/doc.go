// Package webamp provides the player instances driven by the lifecycle
// controller.
//
// The browser widget runs client side, so an instance here is a proxy that
// speaks to one browser page over a server-sent event stream. That stream
// is the mount point: a Surface. Rendering waits until the page has
// connected and then sends an init frame carrying the initial tracks and
// skin. Skin changes and disposal are sent as further frames.
package webamp
