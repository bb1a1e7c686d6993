package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldlens/arv/internal/api"
	"github.com/fieldlens/arv/internal/catalog"
	"github.com/fieldlens/arv/internal/dataset"
	"github.com/fieldlens/arv/internal/review"
	"github.com/fieldlens/arv/internal/sessions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	Long: `Start the HTTP server the review surface talks to.
By default it listens on port 7860. Use --port to change it.

A missing credential file means every login fails; a missing label
catalog degrades editing to free text. Both are warnings, not errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 7860, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

// buildServer wires the API server from configuration. Configuration
// load failures degrade rather than abort: the warnings are reported
// through ui and the server still starts.
func buildServer() *api.Server {
	creds, err := sessions.LoadCredentials(viper.GetString("users_path"))
	if err != nil {
		ui.Warning("credentials unavailable, all logins will fail: %v", err)
		creds = sessions.EmptyCredentials()
	}

	cat, err := catalog.Load(viper.GetString("labels_path"))
	if err != nil {
		ui.Warning("label catalog unavailable, editing degrades to free text: %v", err)
		cat = catalog.Empty()
	}

	reader := dataset.NewReader(viper.GetString("dataset_path"))
	verdicts := review.NewVerdictStore(viper.GetString("output_dir"))
	engine := review.NewEngine(reader, cat, verdicts)
	store := sessions.NewMemoryStore()

	return api.NewServer(creds, store, engine, viper.GetString("image_root"))
}

func serveRun() error {
	srv := buildServer()

	port := viper.GetInt("port")
	addr := fmt.Sprintf(":%d", port)
	ui.Info("Serving review API at http://localhost%s", addr)
	ui.VerboseLog("dataset: %s", viper.GetString("dataset_path"))
	ui.VerboseLog("verdicts: %s", viper.GetString("output_dir"))
	return http.ListenAndServe(addr, srv.Router())
}
