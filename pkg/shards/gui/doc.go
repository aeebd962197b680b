// Package gui provides headless UI units recording widgets into a draw list
// object (frag/eguU).
//
// UI.Root publishes the frame's draw list in the UI.Parents variable; the
// widgets after it read that variable and fail with ErrDependencyUnavailable
// while no root precedes them. UI.Image picks its routine at compose time:
// raw images and gfx textures take different paths, and a value of the
// other kind arriving later is rejected.
package gui
