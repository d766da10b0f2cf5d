package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/household"
	"balanced-meal-planner/internal/logging"
	"balanced-meal-planner/internal/planner"
)

const defaultUser = "local"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	services, err := app.Build(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer services.Close()

	if err := run(ctx, cfg, services, os.Args[1], os.Args[2:]); err != nil {
		logging.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		services.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, s *app.Services, cmd string, args []string) error {
	a := s.App
	switch cmd {
	case "ingest":
		fs := flag.NewFlagSet("ingest", flag.ExitOnError)
		force := fs.Bool("force", false, "Re-extract posts that did not change")
		fs.Parse(args)
		if err := cfg.RequireGhost(); err != nil {
			return err
		}
		if err := cfg.RequireLLM(); err != nil {
			return err
		}
		report, err := a.IngestRecipes(ctx, *force)
		if err != nil {
			return err
		}
		fmt.Printf("Ingestion done: %s\n", report)

	case "import-catalog":
		report, err := a.ImportCatalog(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Import done: %s\n", report)

	case "export-catalog":
		n, err := a.ExportCatalog(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d recipes to %s\n", n, cfg.RecipeStoragePath)

	case "plan":
		fs := flag.NewFlagSet("plan", flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		meals := fs.String("meals", "", "Comma-separated meal types to fill (default all)")
		fs.Parse(args)
		mealTypes, err := parseMealTypes(*meals)
		if err != nil {
			return err
		}
		plan, filled, err := a.PlanWeek(ctx, *user, mealTypes...)
		if err != nil {
			return err
		}
		fmt.Printf("Filled %d slots.\n\n", filled)
		printPlan(plan)

	case "week":
		fs := flag.NewFlagSet("week", flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		planID := fs.String("plan", "", "Plan id (default latest)")
		fs.Parse(args)
		plan, err := a.LoadPlan(ctx, *user, *planID)
		if err != nil {
			return err
		}
		printPlan(plan)

	case "alternatives":
		fs := flag.NewFlagSet("alternatives", flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		planID := fs.String("plan", "", "Plan id (default upcoming week)")
		dayArg := fs.String("day", "", "Day of the week (name or 1-7)")
		mealArg := fs.String("meal", string(planner.Dinner), "Meal type")
		explain := fs.Bool("explain", false, "Ask the assistant to explain the ranking")
		fs.Parse(args)
		day, err := planner.ParseDay(*dayArg)
		if err != nil {
			return err
		}
		mt, err := planner.ParseMealType(*mealArg)
		if err != nil {
			return err
		}
		view, err := a.Alternatives(ctx, *user, *planID, day, mt, *explain)
		if err != nil {
			return err
		}
		fmt.Printf("Alternatives for %s:\n", view.Plan.Slots[view.SlotIndex].Label())
		if len(view.Ranked) == 0 {
			fmt.Println("  none")
		}
		for i, r := range view.Ranked {
			fmt.Printf("  %d. [%s] %s  %d/100  %s\n", i+1, r.Recipe.ID, r.Recipe.DisplayName(), r.Result.Score, r.Result.Reason)
		}
		if view.Explanation != nil {
			fmt.Printf("\n%s\n", view.Explanation.Summary)
		}

	case "swap":
		fs := flag.NewFlagSet("swap", flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		planID := fs.String("plan", "", "Plan id (default latest)")
		dayArg := fs.String("day", "", "Day of the week (name or 1-7)")
		mealArg := fs.String("meal", string(planner.Dinner), "Meal type")
		recipeID := fs.String("recipe", "", "Recipe id to put in the slot")
		fs.Parse(args)
		day, err := planner.ParseDay(*dayArg)
		if err != nil {
			return err
		}
		mt, err := planner.ParseMealType(*mealArg)
		if err != nil {
			return err
		}
		plan, err := a.LoadPlan(ctx, *user, *planID)
		if err != nil {
			return err
		}
		idx, err := plan.SlotIndex(day, mt)
		if err != nil {
			return err
		}
		plan, err = a.Swap(ctx, *user, plan.ID, idx, *recipeID)
		if err != nil {
			return err
		}
		printPlan(plan)

	case "review":
		fs := flag.NewFlagSet("review", flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		planID := fs.String("plan", "", "Plan id (default latest)")
		explain := fs.Bool("explain", false, "Ask the assistant to comment on the week")
		fs.Parse(args)
		review, err := a.ReviewWeek(ctx, *user, *planID, *explain)
		if err != nil {
			return err
		}
		printReview(review)

	case "shopping":
		fs := flag.NewFlagSet("shopping", flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		planID := fs.String("plan", "", "Plan id (default latest)")
		fs.Parse(args)
		list, err := a.ShoppingList(ctx, *user, *planID)
		if err != nil {
			return err
		}
		fmt.Println("To buy:")
		for _, item := range list.Items {
			fmt.Printf("  - %s\n", item)
		}
		if len(list.InStock) > 0 {
			fmt.Println("Already in stock:")
			for _, item := range list.InStock {
				fmt.Printf("  - %s\n", item)
			}
		}

	case "stock":
		return runStock(ctx, a.Households(), args)

	case "prefs":
		return runPrefs(ctx, a.Households(), args)

	case "like", "dislike":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		user := fs.String("user", defaultUser, "Household user id")
		fs.Parse(args)
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: %s [-user id] <recipe-id>", cmd)
		}
		rec, err := a.RecordFeedback(ctx, *user, fs.Arg(0), household.Sentiment(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("Recorded %s for %s\n", cmd, rec.DisplayName())

	case "clip":
		if len(args) != 1 {
			return fmt.Errorf("usage: clip <url>")
		}
		if s.Clipper == nil {
			return cfg.RequireLLM()
		}
		res, err := s.Clipper.ClipURL(ctx, args[0])
		if res != nil {
			a.RecordMeta(ctx, res.Meta)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Clipped %s (%s)\n", res.Recipe.DisplayName(), res.Recipe.ID)
		if res.Post != nil && res.Post.URL != "" {
			fmt.Printf("Published at %s\n", res.Post.URL)
		}

	case "usage":
		fs := flag.NewFlagSet("usage", flag.ExitOnError)
		days := fs.Int("days", 7, "Number of days to report")
		fs.Parse(args)
		usage, err := a.Usage(ctx, *days)
		if err != nil {
			return err
		}
		for _, d := range usage {
			fmt.Printf("%s  %6d execs  %8d tokens  %6d recipes scored\n",
				d.Date, d.TotalExecution, d.TotalPrompt+d.TotalCompletion, d.TotalCandidates)
		}

	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		fs.Parse(args)
		affected, err := a.CleanupMetrics(ctx, *days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func runStock(ctx context.Context, households *household.Repository, args []string) error {
	fs := flag.NewFlagSet("stock", flag.ExitOnError)
	user := fs.String("user", defaultUser, "Household user id")
	fs.Parse(args)

	var err error
	switch action, items := fs.Arg(0), fs.Args(); action {
	case "":
	case "add":
		err = households.AddStock(ctx, *user, items[1:]...)
	case "remove":
		err = households.RemoveStock(ctx, *user, items[1:]...)
	case "set":
		err = households.SetStock(ctx, *user, household.NewStock(items[1:]...))
	case "clear":
		err = households.SetStock(ctx, *user, household.Stock{})
	default:
		return fmt.Errorf("usage: stock [-user id] [add|remove|set|clear] items...")
	}
	if err != nil {
		return err
	}

	stock, err := households.GetStock(ctx, *user)
	if err != nil {
		return err
	}
	fmt.Printf("Pantry (%d items)\n", stock.Len())
	for _, name := range stock.Names() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runPrefs(ctx context.Context, households *household.Repository, args []string) error {
	fs := flag.NewFlagSet("prefs", flag.ExitOnError)
	user := fs.String("user", defaultUser, "Household user id")
	fish := fs.Int("fish", 0, "Fish meals per week")
	veg := fs.Int("veg", 0, "Vegetarian meals per week")
	redMax := fs.Int("red-meat-max", 0, "Maximum red meat meals per week")
	timeBudget := fs.String("time", "", "Time budget: express, normal or long")
	baby := fs.Bool("baby", false, "A baby eats with the household")
	exclude := fs.String("exclude", "", "Comma-separated excluded foods")
	favorite := fs.String("favorite", "", "Comma-separated favorite foods")
	fs.Parse(args)

	prefs, err := households.GetPreferences(ctx, *user)
	if err != nil {
		return err
	}

	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = changed || f.Name != "user"
		switch f.Name {
		case "fish":
			prefs.FishPerWeek = *fish
		case "veg":
			prefs.VegetarianPerWeek = *veg
		case "red-meat-max":
			prefs.RedMeatMax = *redMax
		case "time":
			prefs.TimeBudget = household.TimeBudget(*timeBudget)
		case "baby":
			prefs.HasBaby = *baby
		case "exclude":
			prefs.ExcludedFoods = splitList(*exclude)
		case "favorite":
			prefs.FavoriteFoods = splitList(*favorite)
		}
	})
	if changed {
		if err := households.SavePreferences(ctx, *user, prefs); err != nil {
			return err
		}
	}

	fmt.Printf("Fish per week:       %d\n", prefs.FishPerWeek)
	fmt.Printf("Vegetarian per week: %d\n", prefs.VegetarianPerWeek)
	fmt.Printf("Red meat max:        %d\n", prefs.RedMeatMax)
	fmt.Printf("Time budget:         %s\n", prefs.TimeBudget)
	fmt.Printf("Baby:                %t\n", prefs.HasBaby)
	fmt.Printf("Excluded:            %s\n", strings.Join(prefs.ExcludedFoods, ", "))
	fmt.Printf("Favorites:           %s\n", strings.Join(prefs.FavoriteFoods, ", "))
	return nil
}

func parseMealTypes(s string) ([]planner.MealType, error) {
	var out []planner.MealType
	for _, name := range splitList(s) {
		mt, err := planner.ParseMealType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printPlan(plan *planner.WeekPlan) {
	fmt.Printf("Week of %s (plan %s)\n", plan.Start.Format("Mon 02 Jan 2006"), plan.ID)
	for _, slot := range plan.Slots {
		if slot.Empty() {
			continue
		}
		fmt.Printf("  %-20s %s [%s]\n", slot.Label(), slot.Recipe.DisplayName(), slot.Recipe.ID)
	}
	if plan.Filled() == 0 {
		fmt.Println("  nothing planned yet")
	}
}

func printReview(r *app.WeekReview) {
	if r.Review.Validation.Valid {
		fmt.Println("Balanced week.")
	} else {
		fmt.Println("Balance alerts:")
		for _, alert := range r.Review.Validation.Alerts {
			fmt.Printf("  ! %s\n", alert)
		}
	}
	for _, s := range r.Review.Suggestions {
		fmt.Printf("  > %s\n", s)
	}
	if r.Explanation != nil {
		fmt.Printf("\n%s\n", r.Explanation.Summary)
		for _, h := range r.Explanation.Highlights {
			fmt.Printf("  * %s\n", h)
		}
	}
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  ingest [-force]          Fetch and normalize recipes from Ghost")
	fmt.Println("  import-catalog           Load recipe JSON files into the database")
	fmt.Println("  export-catalog           Write stored recipes as JSON files")
	fmt.Println("  plan [-meals m1,m2]      Fill the empty slots of next week")
	fmt.Println("  week                     Show the latest plan")
	fmt.Println("  alternatives -day d      Rank replacements for a slot")
	fmt.Println("  swap -day d -recipe id   Put a recipe in a slot")
	fmt.Println("  review [-explain]        Check the balance of the latest plan")
	fmt.Println("  shopping                 Build the shopping list of the latest plan")
	fmt.Println("  stock [add|remove|set|clear] items")
	fmt.Println("                           Show or edit the pantry")
	fmt.Println("  prefs [-fish n ...]      Show or edit household preferences")
	fmt.Println("  like|dislike <recipe-id> Record feedback")
	fmt.Println("  clip <url>               Extract and store a recipe from a web page")
	fmt.Println("  usage [-days n]          Daily usage report")
	fmt.Println("  metrics-cleanup          Remove old metric records")
	fmt.Println("\nAll household commands accept -user (default \"local\").")
}
