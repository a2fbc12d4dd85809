package cmd

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Devarsh-44/raceintel360/api"
	"github.com/Devarsh-44/raceintel360/store"
	"github.com/Devarsh-44/raceintel360/strategy"
)

var serveAddr string // Listen address for the HTTP API

// serveCmd runs the HTTP API backed by the lap database and the model registry
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analytics and strategy-simulation HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := store.Open(dbPath)
		if err != nil {
			logrus.Fatalf("Could not open database %s: %v", dbPath, err)
		}
		defer st.Close()

		reg, err := strategy.OpenRegistry(modelDir)
		if err != nil {
			logrus.Warnf("Model artifacts not loaded from %s: %v (strategy simulation disabled until retrained artifacts appear)", modelDir, err)
		}
		if reg != nil {
			if err := reg.Watch(); err != nil {
				logrus.Warnf("Model hot-reload disabled: %v", err)
			}
			defer reg.Close()
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           api.NewServer(st, reg, pitLossSeconds).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logrus.Infof("Serving on %s (db=%s, models=%s)", serveAddr, dbPath, modelDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server stopped: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "Listen address for the HTTP API")
	rootCmd.AddCommand(serveCmd)
}
