package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/ahmadqo/bengkel-pinjam/internal/config"
	"github.com/ahmadqo/bengkel-pinjam/internal/database"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
	"github.com/ahmadqo/bengkel-pinjam/internal/utils"
)

var flagMigrations *cli.StringFlag = &cli.StringFlag{
	Name:    "migrations",
	Value:   "./migrations",
	Usage:   "Direktori file migrasi .sql",
	EnvVars: []string{"MIGRATIONS_PATH"},
}
var flagAdminEmail *cli.StringFlag = &cli.StringFlag{
	Name:    "email",
	Value:   database.DefaultAdminEmail,
	Usage:   "Email admin default",
	EnvVars: []string{"ADMIN_EMAIL"},
}
var flagAdminPassword *cli.StringFlag = &cli.StringFlag{
	Name:    "password",
	Value:   database.DefaultAdminPassword,
	Usage:   "Password admin default",
	EnvVars: []string{"ADMIN_PASSWORD"},
}
var flagLowOnly *cli.BoolFlag = &cli.BoolFlag{
	Name:  "low",
	Usage: "Hanya tampilkan alat yang habis atau hampir habis",
}

func main() {
	app := &cli.App{
		Name:  "bengkelctl",
		Usage: "Perintah operator untuk backend peminjaman alat bengkel",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Jalankan migrasi database yang belum diterapkan",
				Flags: []cli.Flag{flagMigrations},
				Action: func(cCtx *cli.Context) error {
					return withDB(func(db *sqlx.DB, log *slog.Logger) error {
						applied, err := database.RunMigrations(cCtx.Context, db, cCtx.String(flagMigrations.Name), log)
						if err != nil {
							return err
						}
						fmt.Printf("%d migrasi diterapkan\n", len(applied))
						return nil
					})
				},
			},
			{
				Name:  "seed-admin",
				Usage: "Buat akun admin default jika belum ada admin",
				Flags: []cli.Flag{flagAdminEmail, flagAdminPassword},
				Action: func(cCtx *cli.Context) error {
					return withDB(func(db *sqlx.DB, log *slog.Logger) error {
						created, err := database.NewSeeder(db, log).SeedAdmin(
							cCtx.Context, cCtx.String(flagAdminEmail.Name), cCtx.String(flagAdminPassword.Name),
						)
						if err != nil {
							return err
						}
						if created {
							fmt.Println("Admin default dibuat")
						} else {
							fmt.Println("Admin sudah ada, tidak ada perubahan")
						}
						return nil
					})
				},
			},
			{
				Name:  "stock",
				Usage: "Tampilkan stok inventaris beserta labelnya",
				Flags: []cli.Flag{flagLowOnly},
				Action: func(cCtx *cli.Context) error {
					return withDB(func(db *sqlx.DB, log *slog.Logger) error {
						return printStock(cCtx, repository.NewItemRepository(db), cCtx.Bool(flagLowOnly.Name))
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func withDB(fn func(db *sqlx.DB, log *slog.Logger) error) error {
	cfg := config.Load()
	log := utils.NewLogger(&cfg.Log)

	db, err := database.Connect(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, log)
}

func printStock(cCtx *cli.Context, repo repository.ItemRepository, lowOnly bool) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMA\tKATEGORI\tJUMLAH\tKONDISI\tSTATUS")

	shown := 0
	for page := 1; ; page++ {
		items, total, err := repo.FindAll(cCtx.Context, model.ItemFilter{Page: page, PerPage: 100})
		if err != nil {
			return err
		}
		for _, it := range items {
			if lowOnly && it.Jumlah > 0 && it.StatusStok != model.StockLow && it.StatusStok != model.StockEmpty {
				continue
			}
			kategori := "-"
			if it.Kategori != nil {
				kategori = *it.Kategori
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", it.Nama, kategori, it.Jumlah, it.Kondisi, it.StatusStok)
			shown++
		}
		if len(items) == 0 || int64(page*100) >= total {
			break
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d alat\n", shown)
	return nil
}
