// Package lifecycle is the orchestrator over launchers and the instance
// registry. It launches applications under their instance policy, routes
// window actions and termination to the owning launcher, closes or kills
// instances in bulk and runs the monitoring sweep that keeps recorded
// state in line with what the OS reports.
//
// Unknown instance ids produce false or empty results. Only argument
// contract violations on Launch are returned as errors.
package lifecycle
