// Package services implements the driving port interfaces.
// Services hold the scan logic and orchestrate calls to driven ports
// (adapters); they never touch markdown syntax or the network directly.
package services
