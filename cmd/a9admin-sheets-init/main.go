// Command a9admin-sheets-init verifies the Google Sheets export setup: it
// loads the configured credentials, opens the spreadsheet, and checks that
// the report sheet exists. Run it once before enabling export in production.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"a9admin/internal/export/sheets"
)

func main() {
	_ = godotenv.Load()

	if !sheets.Enabled() {
		fmt.Fprintln(os.Stderr, "GOOGLE_SPREADSHEET_ID is not set; nothing to verify")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cli, err := sheets.NewFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build sheets client: %v\n", err)
		os.Exit(1)
	}

	title, err := cli.Verify(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ok: spreadsheet %q is reachable and the report sheet exists\n", title)
}
