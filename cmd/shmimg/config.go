package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hupe1980/shmimg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig merges, in rising precedence, the config file, SHMIMG_*
// environment variables and explicitly set flags.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SHMIMG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func newLogger(v *viper.Viper) (*shmimg.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, err
	}

	switch format := v.GetString("log-format"); format {
	case "", "text":
		return shmimg.NewTextLogger(level), nil
	case "json":
		return shmimg.NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func addLayoutFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.String("shape", "480,640,3", "Image shape, H,W or H,W,C")
	fs.Int("channel-byte-width", 1, "Bytes per channel value")
	fs.Int("group-size", 1, "Images per slot")
	fs.Int("group-count", 1, "Number of slots")
}

func parseShape(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	shape := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid shape %q: %w", s, err)
		}
		shape[i] = n
	}
	return shape, nil
}

func layoutFromConfig(v *viper.Viper) (shmimg.Layout, error) {
	shape, err := parseShape(v.GetString("shape"))
	if err != nil {
		return shmimg.Layout{}, err
	}
	return shmimg.ComputeLayout(
		shape,
		v.GetInt("channel-byte-width"),
		v.GetInt("group-size"),
		v.GetInt("group-count"),
	)
}
