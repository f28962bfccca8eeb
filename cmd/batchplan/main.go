package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/quadica/batchplan/pkg/application/services/composer"
	"github.com/quadica/batchplan/pkg/application/services/export"
	"github.com/quadica/batchplan/pkg/application/services/ledger"
	"github.com/quadica/batchplan/pkg/domain/entities"
	"github.com/quadica/batchplan/pkg/domain/services"
	"github.com/quadica/batchplan/pkg/infrastructure/config"
	"github.com/quadica/batchplan/pkg/infrastructure/events"
	csvrepo "github.com/quadica/batchplan/pkg/infrastructure/repositories/csv"
	"github.com/quadica/batchplan/pkg/infrastructure/repositories/memory"
	"github.com/quadica/batchplan/pkg/infrastructure/metrics"
)

func main() {
	// Optional .env for local runs; real deployments set the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using environment variables")
	}

	var (
		configFile     = flag.String("config", os.Getenv("BATCHPLAN_CONFIG"), "Path to YAML config file")
		componentsFile = flag.String("components", "", "Path to components CSV file")
		ordersFile     = flag.String("orders", "", "Path to orders CSV file")
		lineItemsFile  = flag.String("lineitems", "", "Path to line items CSV file")
		usageFile      = flag.String("usage", "", "Path to component usage CSV file")
		baseType       = flag.String("base-type", "", "Base type to compose a batch for")
		arraySize      = flag.Int64("array-size", 0, "Units per production array (0 = config default)")
		capacity       = flag.Int64("capacity", 0, "Batch capacity hint in units (0 = config default)")
		commit         = flag.Bool("commit", false, "Commit the composed batch and issue serials")
		allowShrink    = flag.Bool("allow-shrink", true, "Allow commit to shrink on concurrent stock changes")
		exportFile     = flag.String("export", "", "Write engraving export CSV here after commit (\"-\" = stdout)")
		format         = flag.String("format", "text", "Output format: text, json")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if *componentsFile == "" || *ordersFile == "" || *lineItemsFile == "" || *usageFile == "" || *baseType == "" {
		fmt.Fprintln(os.Stderr, "Usage: batchplan -components F -orders F -lineitems F -usage F -base-type T [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if *arraySize == 0 {
		*arraySize = cfg.Composer.DefaultArraySize
	}
	if *capacity == 0 {
		*capacity = cfg.Composer.DefaultCapacityHint
	}

	if err := run(cfg, logger, runOptions{
		componentsFile: *componentsFile,
		ordersFile:     *ordersFile,
		lineItemsFile:  *lineItemsFile,
		usageFile:      *usageFile,
		baseType:       *baseType,
		arraySize:      entities.Quantity(*arraySize),
		capacity:       entities.Quantity(*capacity),
		commit:         *commit,
		allowShrink:    *allowShrink,
		exportFile:     *exportFile,
		format:         *format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	componentsFile string
	ordersFile     string
	lineItemsFile  string
	usageFile      string
	baseType       string
	arraySize      entities.Quantity
	capacity       entities.Quantity
	commit         bool
	allowShrink    bool
	exportFile     string
	format         string
}

func run(cfg *config.Config, logger *zap.Logger, opts runOptions) error {
	loader := csvrepo.NewLoader()

	components, err := loader.LoadComponents(opts.componentsFile)
	if err != nil {
		return err
	}
	orders, err := loader.LoadOrders(opts.ordersFile)
	if err != nil {
		return err
	}
	lineItems, err := loader.LoadLineItems(opts.lineItemsFile, opts.usageFile)
	if err != nil {
		return err
	}

	componentRepo := memory.NewComponentRepository()
	reservationRepo := memory.NewReservationRepository()
	orderRepo := memory.NewOrderRepository()
	batchRepo := memory.NewBatchRepository()
	unitRepo := memory.NewUnitRepository()
	if err := componentRepo.LoadComponents(components); err != nil {
		return err
	}
	if err := orderRepo.LoadOrders(orders); err != nil {
		return err
	}
	if err := orderRepo.LoadLineItems(lineItems); err != nil {
		return err
	}

	store := events.NewInMemoryEventStore()
	m := metrics.New(prometheus.NewRegistry())
	ledgerSvc := ledger.NewService(componentRepo, reservationRepo, orderRepo, store, m, logger)
	priority := services.NewPriorityEngine(cfg.Priority.AlmostDueDays)
	allocator := services.NewSerialAllocator(unitRepo, rand.New(rand.NewSource(time.Now().UnixNano())))
	composerSvc := composer.NewService(
		ledgerSvc, orderRepo, batchRepo, unitRepo, allocator, priority,
		store, m, logger, cfg.Composer.CommitRetries,
	)
	composerSvc.SetNoTrimTiers(cfg.Composer.NoTrim())

	if err := seedSoftReservations(ledgerSvc, priority, orderRepo); err != nil {
		return err
	}

	start := time.Now()
	draft, err := composerSvc.ComposeBatch(opts.baseType, opts.capacity, opts.arraySize)
	if err != nil {
		return err
	}
	logger.Info("composition finished", zap.Duration("elapsed", time.Since(start)))

	var batch *entities.Batch
	var serials []entities.UnitSerial
	if opts.commit {
		batch, serials, err = composerSvc.CommitBatch(draft, composer.CommitPolicy{AllowShrink: opts.allowShrink})
		if err != nil {
			return err
		}
	}

	if err := generateOutput(os.Stdout, opts.format, draft, batch, serials, componentRepo, ledgerSvc); err != nil {
		return err
	}

	// The full audit trail of the run, visible under verbose logging.
	trail, err := store.ReadAllEvents(0)
	if err != nil {
		return err
	}
	for _, e := range trail {
		logger.Debug("audit event",
			zap.String("type", e.Type()),
			zap.String("stream", e.StreamID()),
			zap.Int("version", e.Version()))
	}

	if opts.commit && opts.exportFile != "" {
		exportSvc := export.NewService(batchRepo, orderRepo, unitRepo)
		rows, err := exportSvc.Rows(batch.ID)
		if err != nil {
			return err
		}
		out := os.Stdout
		if opts.exportFile != "-" {
			f, err := os.Create(opts.exportFile)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := exportSvc.WriteCSV(out, rows); err != nil {
			return err
		}
	}
	return nil
}

// seedSoftReservations walks eligible orders in priority order and places
// soft claims for their open demand, capped by what is still free. This is
// the "order enters the eligible queue" step when running from a snapshot.
func seedSoftReservations(ledgerSvc *ledger.Service, priority *services.PriorityEngine, orderRepo *memory.OrderRepository) error {
	eligible, err := orderRepo.GetEligibleOrders()
	if err != nil {
		return err
	}
	now := time.Now()
	scores := priority.Rank(eligible, now)
	sort.SliceStable(eligible, func(i, j int) bool {
		return scores[eligible[i].ID].Compare(scores[eligible[j].ID]) > 0
	})

	for _, order := range eligible {
		items, err := orderRepo.GetLineItemsByOrder(order.ID)
		if err != nil {
			return err
		}
		for _, li := range items {
			for sku, per := range li.Components {
				want := li.RemainingQty() * per
				held, err := ledgerSvc.OrderSoft(order.ID, sku)
				if err != nil {
					return err
				}
				want -= held
				if want <= 0 {
					continue
				}
				avail, err := ledgerSvc.Availability(sku)
				if err != nil {
					return err
				}
				if want > avail {
					want = avail
				}
				if want <= 0 {
					continue
				}
				if err := ledgerSvc.SoftReserve(order.ID, sku, want); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
