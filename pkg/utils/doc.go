// Package utils holds small helpers shared across packages: bounded
// concurrent mapping, panic recovery and vector math.
package utils
