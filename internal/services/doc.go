// Package services defines the failure taxonomy shared by the pipeline stages
// and the external tool clients, plus helpers for wrapping errors with stage
// context and bounding diagnostic output.
package services
