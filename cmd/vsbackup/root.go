/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nabbar/vsbackup/internal/vslog"
)

var (
	flagConfig      string
	flagRestorePath string
	flagRestoreDest string
	flagDebug       bool
	flagQuiet       bool
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vsbackup",
		Short:         "Deduplicating filesystem backup and restore",
		Long:          "vsbackup runs a configured backup of one or more filesystem trees into a content-deduplicated archive, or restores one back out of it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to the backup configuration file (yaml/toml/json)")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug-level logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output and colored summaries, for cron use")
	cmd.Flags().StringVar(&flagRestorePath, "restore-backup-path", "", "restore from this backup directory instead of running a backup")
	cmd.Flags().StringVar(&flagRestoreDest, "restore-dest", "", "destination directory for a restore (required with --restore-backup-path)")

	_ = cmd.MarkPersistentFlagRequired("config")

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	level := "info"
	switch {
	case flagDebug:
		level = "debug"
	case flagQuiet:
		level = "error"
	}
	log := vslog.NewDefault(level)

	if flagRestorePath != "" {
		if flagRestoreDest == "" {
			return ErrorMissingRestoreDest
		}
		ok, err := runRestore(flagConfig, flagRestorePath, flagRestoreDest, args, log, flagQuiet)
		return finish(ok, err)
	}

	ok, err := runBackup(flagConfig, log, flagQuiet)
	return finish(ok, err)
}

// finish folds a run's (ok, err) pair into cobra's own error-vs-success
// signal: RunE returning a non-nil error makes Execute report failure
// without cobra printing its own usage banner (SilenceErrors/SilenceUsage
// above), and a nil error with ok false still has to fail the process,
// which Execute does by checking runFailed below.
func finish(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		runFailed = true
	}
	return nil
}

var runFailed bool

// Execute runs the CLI and returns the process exit code: 0 iff the
// requested operation reported complete success, else 1, per spec.md §9.
func Execute() int {
	runFailed = false
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fprintError(os.Stderr, err)
		return 1
	}
	if runFailed {
		return 1
	}
	return 0
}
