package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the fully resolved configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if jsonOutput {
			b, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				fatalErrorRespectJSON("marshaling config: %v", err)
			}
			fmt.Println(string(b))
			return
		}

		fmt.Printf("base-dir:            %s\n", cfg.BaseDir)
		fmt.Printf("main-repo-dir:       %s\n", cfg.MainRepoDir)
		fmt.Printf("resolved-tasks-dir:  %s\n", cfg.ResolvedTasksDir)
		fmt.Printf("config-file-used:    %s\n", cfg.ConfigFileUsed)
		fmt.Printf("use-git?:            %t\n", cfg.UseGit)
		fmt.Printf("branch-management?:  %t\n", cfg.BranchManagement)
		fmt.Printf("worktree-management?:%t\n", cfg.WorktreeManagement)
		fmt.Printf("worktree-prefix:     %s\n", cfg.WorktreePrefix)
		fmt.Printf("base-branch:         %s\n", cfg.BaseBranch)
		fmt.Printf("branch-title-words:  %d\n", cfg.BranchTitleWords)
		fmt.Printf("lock-timeout-ms:     %d\n", cfg.LockTimeoutMs)
		fmt.Printf("lock-poll-interval-ms: %d\n", cfg.LockPollIntervalMs)
		fmt.Printf("enable-git-sync?:    %t\n", cfg.EnableGitSync)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
