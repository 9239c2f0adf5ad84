package cmd

import (
	"fmt"
	"os"
	"path/filepath"
)

func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isScenarioFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if isScenarioFile(arg) {
			files = append(files, arg)
		}
	}
	return files, nil
}

func isScenarioFile(path string) bool {
	return filepath.Ext(path) == ".rest"
}
