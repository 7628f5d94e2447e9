package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"vehicle-tracker/models"
	"vehicle-tracker/services"
	"vehicle-tracker/storage"
)

func newShowCmd(a *app) *cobra.Command {
	var fromMirror bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Summarize the vehicle store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				records []models.CleanRecord
				err     error
			)
			if fromMirror {
				records, err = a.mirrorRecords()
			} else {
				records, err = storage.ReadAll(a.cfg.StorePath)
			}
			if err != nil {
				return err
			}

			svc := services.NewSummaryService(a.logger)
			svc.Print(cmd.OutOrStdout(), svc.Generate(records))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromMirror, "mirror", false, "summarize the PostgreSQL mirror instead of the CSV store")
	return cmd
}

func (a *app) mirrorRecords() ([]models.CleanRecord, error) {
	if !a.cfg.MirrorEnabled() {
		return nil, errors.New("show: POSTGRES_HOST is not set")
	}
	mirror, err := storage.NewPostgresMirror(a.cfg.DSN())
	if err != nil {
		return nil, err
	}
	defer mirror.Close()
	return mirror.FetchAll()
}
