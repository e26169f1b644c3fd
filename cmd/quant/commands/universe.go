package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/universe/internal/contracts"
	"github.com/wonny/universe/internal/pipeline"
	"github.com/wonny/universe/internal/s1_universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "유니버스 생성/조회",
	Long: `스크린을 평가하여 유니버스를 생성하거나 저장된 스냅샷을 조회합니다.

Subcommands:
  build   - 지정 거래일의 유니버스 생성
  show    - 저장된 스냅샷 조회
  screen  - 현재 스크린 표현식 출력

Example:
  go run ./cmd/quant universe build --date 2026-10-16 --save
  go run ./cmd/quant universe show
  go run ./cmd/quant universe screen --mask-mode none --yaml`,
}

var (
	universeBuildCmd = &cobra.Command{
		Use:   "build",
		Short: "유니버스 생성",
		RunE:  runUniverseBuild,
	}

	universeShowCmd = &cobra.Command{
		Use:   "show",
		Short: "저장된 유니버스 조회",
		RunE:  runUniverseShow,
	}

	universeScreenCmd = &cobra.Command{
		Use:   "screen",
		Short: "스크린 표현식 출력",
		RunE:  runUniverseScreen,
	}
)

var (
	universeDate       string
	universeMaskMode   string
	universeScreenFile string
	universeSave       bool
	universeExplain    bool
	universeYAML       bool
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeBuildCmd)
	universeCmd.AddCommand(universeShowCmd)
	universeCmd.AddCommand(universeScreenCmd)

	for _, c := range []*cobra.Command{universeBuildCmd, universeScreenCmd} {
		c.Flags().StringVar(&universeMaskMode, "mask-mode", "", "mask mode override (none|common)")
		c.Flags().StringVar(&universeScreenFile, "screen", "", "YAML screen file")
	}
	for _, c := range []*cobra.Command{universeBuildCmd, universeShowCmd} {
		c.Flags().StringVar(&universeDate, "date", "", "거래일 (YYYY-MM-DD, default today / latest)")
		c.Flags().BoolVar(&universeExplain, "explain", false, "제외 사유 출력")
	}
	universeBuildCmd.Flags().BoolVar(&universeSave, "save", false, "스냅샷 저장")
	universeScreenCmd.Flags().BoolVar(&universeYAML, "yaml", false, "YAML 로 출력")
}

func runUniverseBuild(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if universeDate != "" {
		parsed, err := time.Parse("2006-01-02", universeDate)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		date = parsed
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if universeMaskMode != "" {
		cfg.Universe.MaskMode = universeMaskMode
	}
	if universeScreenFile != "" {
		cfg.Universe.ScreenFile = universeScreenFile
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	universe, err := a.builder.Build(ctx, date)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	out := cmd.OutOrStdout()
	printUniverse(out, universe, universeExplain)

	if universeSave {
		if err := a.store.SaveUniverse(ctx, universe); err != nil {
			return fmt.Errorf("save universe: %w", err)
		}
		PrintSuccess(out, fmt.Sprintf("Snapshot saved (run %s)", universe.RunID))
	}
	return nil
}

func runUniverseShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var universe *contracts.Universe
	if universeDate == "" {
		universe, err = a.store.GetLatestUniverse(ctx)
	} else {
		date, perr := time.Parse("2006-01-02", universeDate)
		if perr != nil {
			return fmt.Errorf("parse --date: %w", perr)
		}
		universe, err = a.store.GetUniverse(ctx, date)
	}
	if err != nil {
		return fmt.Errorf("get universe: %w", err)
	}

	printUniverse(cmd.OutOrStdout(), universe, universeExplain)
	return nil
}

func runUniverseScreen(cmd *cobra.Command, args []string) error {
	mode := universeMaskMode
	if mode == "" {
		mode = s1_universe.MaskCommon
	}

	screen, err := s1_universe.Config{MaskMode: mode, ScreenFile: universeScreenFile}.Screen()
	if err != nil {
		return err
	}
	return printScreen(cmd.OutOrStdout(), screen, universeYAML)
}

func printScreen(w io.Writer, screen pipeline.Filter, asYAML bool) error {
	if asYAML {
		data, err := pipeline.EncodeScreen(screen)
		if err != nil {
			return fmt.Errorf("encode screen: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	hash, err := screen.Hash()
	if err != nil {
		return fmt.Errorf("hash screen: %w", err)
	}

	PrintHeader(w, "Universe Screen")
	PrintKeyValue(w, "Expression", screen.String(), 10)
	PrintKeyValue(w, "Hash", hash[:16], 10)
	PrintKeyValue(w, "Columns", strings.Join(screen.Columns(), ", "), 10)
	PrintKeyValue(w, "Lookback", strconv.Itoa(screen.Lookback())+" sessions", 10)
	PrintSeparator(w)
	return nil
}

func printUniverse(w io.Writer, u *contracts.Universe, explain bool) {
	PrintHeader(w, "Universe "+pipeline.SessionKey(u.Date))
	PrintKeyValue(w, "Run ID", u.RunID, 10)
	PrintKeyValue(w, "Screen", u.Screen, 10)
	PrintKeyValue(w, "Selected", strconv.Itoa(u.Count()), 10)
	PrintKeyValue(w, "Excluded", strconv.Itoa(len(u.Excluded)), 10)
	PrintSeparator(w)

	if len(u.Stocks) == 0 {
		PrintWarning(w, "No stocks passed the screen")
	}
	for _, code := range u.Stocks {
		fmt.Fprintf(w, "   %s\n", code)
	}

	if !explain || len(u.Excluded) == 0 {
		return
	}

	codes := make([]string, 0, len(u.Excluded))
	for code := range u.Excluded {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Fprintln(w)
	widths := []int{10, 48}
	PrintTableHeader(w, []string{"Code", "Reason"}, widths)
	for _, code := range codes {
		PrintTableRow(w, []string{code, u.Excluded[code]}, widths)
	}
}
