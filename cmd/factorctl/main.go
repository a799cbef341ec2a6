package main

import (
	"fmt"
	"os"

	"traffic-watch-go/config"
	"traffic-watch-go/internal/core/models"
	"traffic-watch-go/internal/db"
	"traffic-watch-go/internal/db/repository"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// defaultCatalog sind die Factors, die seed anlegt, wenn sie fehlen
var defaultCatalog = []models.Factor{
	{Name: "athletic build", Type: models.FactorTypePositive},
	{Name: "blue shirt", Type: models.FactorTypePositive},
	{Name: "walks with dog", Type: models.FactorTypePositive},
	{Name: "carries backpack", Type: models.FactorTypePositive},
	{Name: "too tall", Type: models.FactorTypeNegative},
	{Name: "too short", Type: models.FactorTypeNegative},
	{Name: "wrong gait", Type: models.FactorTypeNegative},
	{Name: "group of people", Type: models.FactorTypeNegative},
}

func main() {
	var configPath string
	var factors repository.FactorRepository

	rootCmd := &cobra.Command{
		Use:   "factorctl",
		Short: "Manage the review factor catalog",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetLevel(log.WarnLevel)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			database, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			factors = repository.NewFactorRepository(database)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/config/config.yaml", "path to configuration file")

	listCmd := &cobra.Command{
		Use:   "list [type]",
		Short: "List factors, optionally filtered by type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				items []models.Factor
				err   error
			)
			if len(args) == 1 {
				items, err = factors.ListByType(args[0])
			} else {
				items, err = factors.ListAll()
			}
			if err != nil {
				return err
			}
			for _, f := range items {
				fmt.Printf("%d\t%s\t%s\t%s\n", f.ID, f.Type, f.Name, f.Description)
			}
			return nil
		},
	}

	var factorType, description string

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a factor to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factor, err := factors.Create(args[0], factorType, description)
			if err != nil {
				return err
			}
			fmt.Printf("created factor %d: %s (%s)\n", factor.ID, factor.Name, factor.Type)
			return nil
		},
	}
	addCmd.Flags().StringVar(&factorType, "type", models.FactorTypePositive, "factor type (positive or negative)")
	addCmd.Flags().StringVar(&description, "description", "", "factor description")

	updateCmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Update a factor's name, type and description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := factors.Update(id, args[1], factorType, description); err != nil {
				return err
			}
			fmt.Printf("updated factor %d\n", id)
			return nil
		},
	}
	updateCmd.Flags().StringVar(&factorType, "type", models.FactorTypePositive, "factor type (positive or negative)")
	updateCmd.Flags().StringVar(&description, "description", "", "factor description")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a factor and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			deleted, err := factors.Delete(id)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("factor %d not found", id)
			}
			fmt.Printf("deleted factor %d\n", id)
			return nil
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the default catalog, skipping existing names",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := factors.ListAll()
			if err != nil {
				return err
			}
			present := make(map[string]bool, len(existing))
			for _, f := range existing {
				present[f.Name] = true
			}

			created := 0
			for _, f := range defaultCatalog {
				if present[f.Name] {
					continue
				}
				if _, err := factors.Create(f.Name, f.Type, f.Description); err != nil {
					return err
				}
				created++
			}
			fmt.Printf("seeded %d factor(s), %d already present\n", created, len(defaultCatalog)-created)
			return nil
		},
	}

	rootCmd.AddCommand(listCmd, addCmd, updateCmd, deleteCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func parseID(raw string) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
