// Package launcher starts, finds, switches to and stops application
// instances. One launcher exists per way of running an application:
// desktop executables, Chrome app windows, web pages in an external
// browser or the embedded web view, file manager folders and Android
// packages. The Registry picks the highest-priority launcher that accepts
// an application.
//
// Launchers are stateless with respect to instances. The instance
// registry owns every instance and passes launchers copies to act on.
package launcher
