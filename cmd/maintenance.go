package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"furnishop-backend/internal/models"
	"furnishop-backend/internal/services"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending database migrations",
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			rt.Close()
			return nil
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "create an admin account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "Admin User"},
			&cli.StringFlag{Name: "email", Value: "admin@furnishop.com"},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			users := services.NewUserService(rt.db, rt.logger)
			exists, err := users.UserExists(c.Context, c.String("email"))
			if err != nil {
				return err
			}
			if exists {
				rt.logger.WithField("email", c.String("email")).Warn("admin user already exists")
				return nil
			}

			user, err := users.CreateAdmin(c.Context, &models.UserRegistration{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: c.String("password"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "admin created: %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load the sample furniture catalog into an empty database",
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			products := services.NewProductService(rt.db, nil, rt.logger)
			existing, err := products.GetProducts(c.Context)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				rt.logger.WithField("products", len(existing)).Info("catalog not empty, skipping seed")
				return nil
			}

			for _, p := range sampleCatalog() {
				p := p
				if _, err := products.CreateProduct(c.Context, &p); err != nil {
					return errors.Wrapf(err, "failed to seed %s", p.Name)
				}
			}
			fmt.Fprintf(c.App.Writer, "seeded %d products\n", len(sampleCatalog()))
			return nil
		},
	}
}

func checkStorageCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-storage",
		Usage: "write, sign and delete a probe object in the asset bucket",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig(c)
			if err != nil {
				return err
			}

			store, closeStore, err := openObjectStore(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			key := fmt.Sprintf("uploads/healthcheck/probe-%d.txt", time.Now().UnixMilli())
			url, err := store.Put(c.Context, key, bytes.NewReader([]byte("ok")), "text/plain")
			if err != nil {
				return errors.Wrap(err, "put failed")
			}
			fmt.Fprintf(c.App.Writer, "put:    %s\n", url)

			signed, err := store.Sign(c.Context, key, time.Minute)
			if err != nil {
				return errors.Wrap(err, "sign failed")
			}
			fmt.Fprintf(c.App.Writer, "signed: %s\n", signed)

			if got := store.KeyFromURL(url); got != key {
				return errors.Errorf("url does not map back to its key: %q", got)
			}

			if err := store.Delete(c.Context, key); err != nil {
				return errors.Wrap(err, "delete failed")
			}
			fmt.Fprintln(c.App.Writer, "delete: ok")
			return nil
		},
	}
}

func sampleCatalog() []models.ProductCreation {
	return []models.ProductCreation{
		{
			Name:        "Modern Cabinet Collection",
			Description: "Wooden cabinet collection with multiple style variants",
			Price:       15000,
			Category:    models.CategoryCabinets,
			Stock:       10,
			Image:       "/models/cabinet/images/image-1.jpg",
			Models: models.ModelVariants{
				{ModelURL: "/models/cabinet/cabinet-1.glb", Price: 15000, Description: "Two openings with a classic design for clothes and pants.", VariantName: "Clothing Cabinet"},
				{ModelURL: "/models/cabinet/cabinet-2.glb", Price: 18000, Description: "Top section for plates and a lower section for general storage.", VariantName: "Dual Storage Cabinet"},
				{ModelURL: "/models/cabinet/cabinet-3.glb", Price: 20000, Description: "Glass-protected plate section over a storage base.", VariantName: "Glass-Protected Cabinet"},
			},
		},
		{
			Name:        "Outdoor Table Series",
			Description: "Table collection with two functional designs.",
			Price:       12000,
			Category:    models.CategoryTables,
			Stock:       15,
			Image:       "/models/table/images/image-1.png",
			Models: models.ModelVariants{
				{ModelURL: "/models/table/table-2.glb", Price: 15000, Description: "Standard dining table for everyday use.", VariantName: "Standard Dining Table"},
				{ModelURL: "/models/table/table-1.glb", Price: 12000, Description: "Table with built-in seating for compact spaces.", VariantName: "Built-In Seating Table"},
			},
		},
		{
			Name:        "Compact Mini Cabinet",
			Description: "Space-saving mini cabinet for small spaces.",
			Price:       3000,
			Category:    models.CategoryCabinets,
			Stock:       20,
			Image:       "/models/mini-cabinet/images/image-1.png",
			Models: models.ModelVariants{
				{ModelURL: "/models/mini-cabinet/mini-cabinet-1.glb", Price: 8000, Description: "Two doors with two shelves inside.", VariantName: "Two-Door Mini Cabinet"},
			},
		},
	}
}
