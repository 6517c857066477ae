// Package entity defines the state and entity vocabulary shared between the
// host platform and the climate discovery core.
//
// It is deliberately free of behaviour: the host stores States, the sensor
// package implements Entity, and the discovery engine reads both through the
// narrow StateReader interface.
package entity
