/*
 * stream-web is a browser-based client for Xtream-Codes IPTV services.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lucasduport/stream-web/pkg/config"
	"github.com/lucasduport/stream-web/pkg/server"
	"github.com/lucasduport/stream-web/pkg/utils"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stream-web",
	Short: "Web client gateway for Xtream-Codes IPTV providers",
	Long: `stream-web hosts the server side of a browser-based Xtream-Codes
IPTV client: a same-origin relay gateway that forwards catalog and media
requests to an allow-listed provider, and a session resolver that owns the
provider credentials and derives every API and stream URL the UI consumes.`,

	Run: func(cmd *cobra.Command, args []string) {
		log.Printf("[stream-web] Server is starting...")

		utils.Config.DebugLoggingEnabled = viper.GetBool("debug-logging")

		conf := &config.AppConfig{
			HostConfig: &config.HostConfiguration{
				Hostname: viper.GetString("hostname"),
				Port:     viper.GetInt("port"),
			},
			HTTPS:        viper.GetBool("https"),
			RelayPath:    viper.GetString("relay-path"),
			AllowedHosts: viper.GetStringSlice("allowed-host"),
			StorageDir:   viper.GetString("storage-dir"),
			UserAgent:    viper.GetString("user-agent"),
			ProtectRelay: viper.GetBool("protect-relay"),
			User:         config.CredentialString(viper.GetString("user")),
			Password:     config.CredentialString(viper.GetString("password")),
			// LDAP access gate
			LDAPEnabled:        viper.GetBool("ldap-enabled"),
			LDAPServer:         viper.GetString("ldap-server"),
			LDAPBaseDN:         viper.GetString("ldap-base-dn"),
			LDAPBindDN:         viper.GetString("ldap-bind-dn"),
			LDAPBindPassword:   viper.GetString("ldap-bind-password"),
			LDAPUserAttribute:  viper.GetString("ldap-user-attribute"),
			LDAPGroupAttribute: viper.GetString("ldap-group-attribute"),
			LDAPRequiredGroup:  viper.GetString("ldap-required-group"),
		}

		if len(conf.AllowedHosts) == 0 {
			log.Fatal("at least one --allowed-host (host:port) is required")
		}

		srv, err := server.NewServer(conf)
		if err != nil {
			log.Fatal(err)
		}

		if err := srv.Serve(); err != nil {
			log.Fatal(err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Config file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.stream-web.yaml)")

	// Basic configuration flags
	rootCmd.Flags().Int("port", 8080, "Listening port")
	rootCmd.Flags().String("hostname", "localhost", "Hostname to use in generated URLs")
	rootCmd.Flags().BoolP("https", "", false, "Use HTTPS for generated URLs")
	rootCmd.Flags().String("relay-path", "/relay", "Local path the relay gateway is mounted on")
	rootCmd.Flags().StringSlice("allowed-host", nil, "Upstream host:port the relay may forward to (repeatable)")
	rootCmd.Flags().String("storage-dir", ".stream-web", "Directory for the persisted credential record")
	rootCmd.Flags().String("user-agent", "", "User agent for upstream requests (default IPTVSmartersPro)")
	rootCmd.Flags().BoolP("protect-relay", "", false, "Require gate authentication on the relay endpoint")
	rootCmd.Flags().BoolP("debug-logging", "", false, "Enable debug logging")

	// Access gate flags
	rootCmd.Flags().String("user", "", "Gate username (empty disables the local gate)")
	rootCmd.Flags().String("password", "", "Gate password")

	// LDAP access gate flags
	rootCmd.Flags().Bool("ldap-enabled", false, "Enable LDAP authentication for the gate")
	rootCmd.Flags().String("ldap-server", "", "LDAP server URL")
	rootCmd.Flags().String("ldap-base-dn", "", "LDAP base DN")
	rootCmd.Flags().String("ldap-bind-dn", "", "LDAP bind DN")
	rootCmd.Flags().String("ldap-bind-password", "", "LDAP bind password")
	rootCmd.Flags().String("ldap-user-attribute", "uid", "LDAP username attribute")
	rootCmd.Flags().String("ldap-group-attribute", "memberOf", "LDAP group attribute")
	rootCmd.Flags().String("ldap-required-group", "iptv", "Required LDAP group")

	// Bind all flags to viper
	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		log.Fatal("Error binding PFlags to viper")
	}
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory and current directory
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".stream-web")
	}

	// Replace hyphens with underscores in environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read environment variables
	viper.AutomaticEnv()

	// Read in config file if found
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
