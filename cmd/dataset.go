package cmd

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Devarsh-44/raceintel360/store"
)

var datasetOut string // Output CSV path

// datasetCmd exports cleaned, feature-engineered training rows as CSV
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build the lap-time training dataset from the database",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := store.Open(dbPath)
		if err != nil {
			logrus.Fatalf("Could not open database %s: %v", dbPath, err)
		}
		defer st.Close()

		rows, err := st.BuildDataset()
		if err != nil {
			logrus.Fatalf("Could not build dataset: %v", err)
		}
		if len(rows) == 0 {
			logrus.Fatalf("No usable laps in %s", dbPath)
		}

		f, err := os.Create(datasetOut)
		if err != nil {
			logrus.Fatalf("Could not create %s: %v", datasetOut, err)
		}
		defer f.Close()

		bar := progressbar.Default(int64(len(rows)), "writing dataset")
		if err := store.WriteDatasetCSV(f, rows, func() { bar.Add(1) }); err != nil {
			logrus.Fatalf("Could not write dataset: %v", err)
		}
		logrus.Infof("Wrote %d rows to %s", len(rows), datasetOut)
	},
}

func init() {
	datasetCmd.Flags().StringVar(&datasetOut, "out", "lap_dataset.csv", "Output CSV path")
	rootCmd.AddCommand(datasetCmd)
}
