//go:build idmapdebug

package idmap

const debugChecks = true
