// Package testsupport holds fixtures shared by package tests: temp-dir
// configs, run states, scripted providers, and an in-memory persister.
package testsupport
