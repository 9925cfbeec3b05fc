package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emariqueo1/clasificador-salcobrand/internal/api"
	"github.com/emariqueo1/clasificador-salcobrand/internal/classify"
	"github.com/emariqueo1/clasificador-salcobrand/internal/digest"
	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(true)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if d.notifier != nil {
				if err := digest.Start(ctx, d.cfg.DigestSchedule, d.cfg.Location, d.store, d.notifier); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              d.cfg.Addr(),
				Handler:           api.NewServer(d.service(), d.store).Handler(d.cfg.CORSOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Printf("Starting classifier API on http://%s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			log.Println("Shutting down classifier API...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newClassifyCmd() *cobra.Command {
	var manufacturer string
	cmd := &cobra.Command{
		Use:   "classify <product>",
		Short: "Classify one product and store the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(true)
			if err != nil {
				return err
			}
			defer d.Close()

			resp, err := d.service().Classify(cmd.Context(), classify.Request{
				Product:      strings.Join(args, " "),
				Manufacturer: manufacturer,
			})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s [%s]: %v\n", color.RedString("ERROR"), classify.StageOf(err), err)
				return err
			}
			printResponse(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&manufacturer, "manufacturer", "m", "", "Manufacturer or brand (optional)")
	return cmd
}

func printResponse(w io.Writer, resp classify.Response) {
	fmt.Fprintf(w, "%s #%d %s (%s)\n", color.GreenString("Clasificado"), resp.ID, resp.Product, resp.Manufacturer)
	fmt.Fprintf(w, "Categoría: %s (%s)\n", color.CyanString(string(resp.CategoryCode)), resp.CategoryCode.Label())
	fmt.Fprintf(w, "Empaque: %s\n", resp.PackagingType)
	fmt.Fprintf(w, "Empaque secundario: %s\n", resp.HasSecondaryPackaging)
	fmt.Fprintf(w, "Riesgo de merma: %s\n", riskString(resp.ShrinkageRisk))
	fmt.Fprintf(w, "Razonamiento: %s\n", resp.Reasoning)
	if resp.WebSourceNote != "" {
		fmt.Fprintf(w, "Fuente: %s\n", resp.WebSourceNote)
	}
}

func riskString(r domain.ShrinkageRisk) string {
	switch r {
	case domain.RiskHigh:
		return color.RedString(string(r))
	case domain.RiskMedium:
		return color.YellowString(string(r))
	default:
		return color.GreenString(string(r))
	}
}

func newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored classifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(false)
			if err != nil {
				return err
			}
			defer d.Close()

			records, err := d.store.ListAll(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No classifications stored.")
				return nil
			}
			renderRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of rows (0 means the store maximum)")
	return cmd
}

func renderRecords(w io.Writer, records []domain.ClassificationRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Producto", "Fabricante", "Categoría", "Secundario", "Riesgo", "Fecha"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range records {
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.Product,
			r.Manufacturer,
			string(r.CategoryCode),
			r.HasSecondaryPackaging,
			string(r.ShrinkageRisk),
			r.ClassifiedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			d, err := openDeps(false)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("All classifications deleted."))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
