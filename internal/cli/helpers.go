package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wickidcool/create-aws-project/internal/config"
)

// openStore locates the project config file in the current directory and
// fails with guidance when the directory holds no generated project.
func openStore() (*config.Store, *config.ProjectConfig, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	store := config.NewStore(filepath.Join(wd, config.DefaultFileName))
	cfg, err := store.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("no %s found in %s. Run 'create-aws-project init' first", config.DefaultFileName, wd)
		}
		return nil, nil, err
	}
	return store, cfg, nil
}
