// Package config loads process-wide settings from environment variables.
//
// All settings are read once at startup and passed by pointer into each
// component; there is no global config state. Production requires the full
// OAuth and key-material surface; development tolerates empty secrets.
package config
