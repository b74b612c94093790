// Copyright 2025 Git LFS S3 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Nullreff/git-lfs-s3/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "git-lfs-s3",
	Short: "git-lfs-s3 - a Git LFS server backed by S3 presigned URLs",
	Long: `git-lfs-s3 brokers Git LFS transfers against an S3-compatible object
store. It never handles object bytes: clients receive short-lived presigned
URLs and talk to the store directly. The broker decides per object whether a
download grant or an upload-plus-verify grant is issued.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
