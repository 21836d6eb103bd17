package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kingpin"
	"github.com/google/uuid"

	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/export"
	"bilancio/internal/log"
	"bilancio/internal/report"
)

func main() {
	cli.LoadEnvFile()

	user := kingpin.Flag("user", "User ID").Short('u').Required().Int64()
	verbose := kingpin.Flag("verbose", "Log at debug level").Short('v').Bool()

	cmdGenerate := kingpin.Command("generate", "Generate (or fetch the stored) report for a period")
	kind := cmdGenerate.Flag("type", "Report type: monthly, annual or custom").Default("monthly").String()
	year := cmdGenerate.Flag("year", "Year for monthly and annual reports").Int()
	month := cmdGenerate.Flag("month", "Month (1-12) for monthly reports").Int()
	start := cmdGenerate.Flag("start", "Start date (YYYY-MM-DD) for custom reports").String()
	end := cmdGenerate.Flag("end", "End date (YYYY-MM-DD) for custom reports").String()
	fresh := cmdGenerate.Flag("regenerate", "Discard the stored report and compute it again").Bool()

	cmdList := kingpin.Command("list", "List stored reports")

	cmdShow := kingpin.Command("show", "Show a stored report as JSON")
	showID := cmdShow.Arg("id", "Report ID").Required().String()

	cmdDelete := kingpin.Command("delete", "Delete a stored report")
	deleteID := cmdDelete.Arg("id", "Report ID").Required().String()

	cmdExport := kingpin.Command("export", "Write a stored report as an XLSX workbook")
	exportID := cmdExport.Arg("id", "Report ID").Required().String()
	output := cmdExport.Flag("output", "Output file, defaults to the report file name").Short('o').String()

	cmd := kingpin.Parse()

	level := os.Getenv("LOG_LEVEL")
	if *verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(level, os.Getenv("LOG_FORMAT"), log.ComponentCLI)
	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg)
	kingpin.FatalIfError(err, "backend configuration")
	ctx := context.Background()
	store, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	kingpin.FatalIfError(err, "initialize backend")
	defer store.Close()

	gen := report.NewGenerator(store.Sources, store.Store, logger)
	uid := core.UserID(*user)

	switch cmd {
	case cmdGenerate.FullCommand():
		req, err := report.ParseRequest(*kind, *year, *month, *start, *end)
		kingpin.FatalIfError(err, "parse request")
		var r core.Report
		if *fresh {
			r, err = gen.Regenerate(ctx, uid, req)
		} else {
			r, err = gen.Generate(ctx, uid, req)
		}
		kingpin.FatalIfError(err, "generate report")
		printSummary(r)

	case cmdList.FullCommand():
		reports, err := gen.List(ctx, uid)
		kingpin.FatalIfError(err, "list reports")
		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tSTART\tEND\tBUDGET\tEXPENSES\tUSAGE %")
		for _, r := range reports {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Kind.Label(), r.StartDate, r.EndDate, r.TotalBudget, r.TotalExpenses, r.GlobalUsagePercentage)
		}
		tw.Flush()

	case cmdShow.FullCommand():
		r := load(ctx, gen, uid, *showID)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		kingpin.FatalIfError(enc.Encode(r), "encode report")

	case cmdDelete.FullCommand():
		id, err := uuid.Parse(*deleteID)
		kingpin.FatalIfError(err, "parse report id")
		kingpin.FatalIfError(gen.Delete(ctx, uid, id), "delete report")
		fmt.Println("deleted", id)

	case cmdExport.FullCommand():
		r := load(ctx, gen, uid, *exportID)
		data, err := export.XLSX(r)
		kingpin.FatalIfError(err, "render workbook")
		path := *output
		if path == "" {
			path = export.FileName(r)
		}
		kingpin.FatalIfError(os.WriteFile(path, data, 0o644), "write workbook")
		fmt.Println(path)
	}
}

func load(ctx context.Context, gen *report.Generator, user core.UserID, raw string) core.Report {
	id, err := uuid.Parse(raw)
	kingpin.FatalIfError(err, "parse report id")
	r, err := gen.Get(ctx, user, id)
	kingpin.FatalIfError(err, "load report %s", raw)
	return r
}

func printSummary(r core.Report) {
	fmt.Printf("%s report %s .. %s (%s)\n", r.Kind.Label(), r.StartDate, r.EndDate, r.ID)
	fmt.Printf("  Budget:      %12s\n", r.TotalBudget)
	fmt.Printf("  Expenses:    %12s\n", r.TotalExpenses)
	fmt.Printf("  Savings:     %12s\n", r.TotalSavings)
	if r.GlobalUsagePercentage.Valid() {
		fmt.Printf("  Usage:       %11s%%\n", r.GlobalUsagePercentage)
	}
	if r.DominantCategory != "" {
		fmt.Printf("  Top:         %s (%s)\n", r.DominantCategory, r.DominantCategoryAmount)
	}
	fmt.Printf("  Over budget: %d categories, %s\n", r.OverBudgetCategoriesCount, r.TotalOverBudgetAmount)

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\nCATEGORY\tBUDGET\tEXPENSES\tUSAGE %\tOVER\tTX\t")
	for _, c := range r.CategoryDetails {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t\n", c.Name, c.Budget, c.Expenses, c.UsagePercentage, c.OverBudgetAmount, c.TransactionCount)
	}
	tw.Flush()
}
