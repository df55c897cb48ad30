// Package instance holds the registry of tracked application instances.
//
// The Manager is the only component allowed to mutate instances. Launchers
// build new instances and hand them to Add; the lifecycle service changes
// them through Update or Mutate. Readers always get copies.
package instance
