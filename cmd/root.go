// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Link configuration file
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "bifil",
	Short: "Bifil Synchronous Serial Link Tool",
	Long: `Bifil - A CLI tool for exercising and monitoring Bifil serial links.

Bifil links exchange 33-bit slots (1 validity bit + 32-bit word) over a
two-wire clock+data pair, full duplex, with one end driving the clock.
This tool simulates link pairs, monitors traffic interactively, bridges
a local link endpoint over a serial port or WebSocket, and captures
exchange traces for offline inspection.

Connection modes (bridge only):
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the BIFIL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell
history.`,
	Version: "1.2.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Link configuration file (YAML)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
