package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Wame555/hesoyam/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		cfg = config.Default()
	}

	for {
		fmt.Println("\n=== Hesoyam Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit strategy weights and thresholds")
		fmt.Println("3) Edit risk and order sizing")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch live session")
		fmt.Println("6) Run backtest")
		fmt.Println("7) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editStrategy(reader, cfg)
		case "3":
			editRisk(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchChild(reader, "./cmd/live")
		case "6":
			runBacktest(reader)
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Symbol: %s @ %s (%s)\n", cfg.Exchange.Symbol, cfg.Exchange.Name, cfg.Exchange.Timeframe)
	fmt.Printf("Provider: %s | testnet: %v\n", cfg.Exchange.Provider, cfg.Exchange.Testnet)
	fmt.Print("Weights:")
	for _, id := range []string{"SMA_EMA", "RSI", "BOLL", "MTF_SMA"} {
		fmt.Printf(" %s=%.2f", id, cfg.Strategy.Weights[id])
	}
	fmt.Println()
	fmt.Printf("Thresholds: long > %.1f | short < %.1f\n", cfg.Strategy.ThresholdUp, cfg.Strategy.ThresholdDown)
	fmt.Printf("Order size: $%.2f | bracket: %v (tp %.2f%% / sl %.2f%%)\n",
		cfg.Live.OrderQuoteAmount, cfg.Live.AttachBracket, cfg.Live.TakeProfitPct, cfg.Live.StopLossPct)
	fmt.Printf("Per-trade notional cap: $%.2f\n", cfg.Risk.MaxNotionalPerTrade)
	fmt.Printf("Daily loss limit: %.2f%%\n", cfg.Risk.MaxDailyLossPct)
	fmt.Printf("Backtest: cash $%.2f | fee %.4f | fraction %.2f\n",
		cfg.Backtest.StartingCash, cfg.Backtest.FeeRate, cfg.Backtest.PositionFrac)
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	if cfg.Strategy.Weights == nil {
		cfg.Strategy.Weights = map[string]float64{}
	}
	for _, id := range []string{"SMA_EMA", "RSI", "BOLL", "MTF_SMA"} {
		cfg.Strategy.Weights[id] = promptFloat(reader, "Weight "+id, cfg.Strategy.Weights[id])
	}
	cfg.Strategy.ThresholdUp = promptFloat(reader, "Long threshold", cfg.Strategy.ThresholdUp)
	cfg.Strategy.ThresholdDown = promptFloat(reader, "Short threshold", cfg.Strategy.ThresholdDown)
	cfg.Strategy.Modules.MtfFactor = int(promptFloat(reader, "MTF factor", float64(cfg.Strategy.Modules.MtfFactor)))
	if cfg.Strategy.Modules.MtfFactor < 1 {
		cfg.Strategy.Modules.MtfFactor = 1
	}
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Risk / Sizing ---")
	cfg.Live.OrderQuoteAmount = promptFloat(reader, "Order size (quote)", cfg.Live.OrderQuoteAmount)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade", cfg.Risk.MaxNotionalPerTrade)
	cfg.Risk.MaxDailyLossPct = promptFloat(reader, "Max daily loss (%)", cfg.Risk.MaxDailyLossPct)
	cfg.Live.TakeProfitPct = promptFloat(reader, "Take profit (%)", cfg.Live.TakeProfitPct)
	cfg.Live.StopLossPct = promptFloat(reader, "Stop loss (%)", cfg.Live.StopLossPct)
}

func runBacktest(reader *bufio.Reader) {
	fmt.Print("History CSV path: ")
	line, _ := reader.ReadString('\n')
	path := strings.TrimSpace(line)
	if path == "" {
		fmt.Println("no path given")
		return
	}
	cmd := exec.Command("go", "run", "./cmd/backtest", "-config", locateConfig(), path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "backtest failed: %v\n", err)
	}
}

func launchChild(reader *bufio.Reader, pkg string) {
	fmt.Println("Launching (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", pkg, "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
