// Command reconcile reports accounts without a profile, profiles whose
// account is gone, membership ids that no longer name a teacher, and
// students whose class is gone.
// With -prune the dangling membership ids are removed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/utilities"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 when the stores agree or -prune was
// given, 1 on failure, 2 when problems were reported.
func run() int {
	prune := flag.Bool("prune", false, "remove dangling teacher ids from class and subject sets")
	flag.Parse()

	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Errorf("db connect: %v", err)
		return 1
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(db, 0, sugar)
	if err := a.EnsureSchema(ctx); err != nil {
		sugar.Errorf("%v", err)
		return 1
	}
	rep, err := a.Identity.Reconcile(ctx, *prune)
	if err != nil {
		sugar.Errorf("reconcile: %v", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		sugar.Errorf("write report: %v", err)
		return 1
	}
	if !rep.Clean() && !*prune {
		return 2
	}
	return 0
}
