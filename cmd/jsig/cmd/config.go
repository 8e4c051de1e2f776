package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/spf13/viper"

	"github.com/corey/jsig/internal/adapters/minio"
	"github.com/corey/jsig/internal/app"
	"github.com/corey/jsig/internal/domain/options"
	"github.com/corey/jsig/internal/ports"
)

// loadGlobalOptions reads .jsig.yaml from the project root (all keys
// optional) into the checker-wide option bundle.
func loadGlobalOptions(root string) (options.GlobalOptions, error) {
	v := viper.New()
	v.SetConfigName(".jsig")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)
	v.SetEnvPrefix("JSIG")
	v.AutomaticEnv()

	v.SetDefault("max_header_tokens", 10)
	v.SetDefault("node_main_fields", []string{"main"})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return options.GlobalOptions{}, fmt.Errorf("read config: %w", err)
		}
	}

	g := options.GlobalOptions{
		AllTypes:              v.GetBool("all"),
		ModulesAreUseStrict:   v.GetBool("modules_are_use_strict"),
		MungeUnderscores:      v.GetBool("munge_underscores"),
		ModuleRefPrefix:       v.GetString("module_ref_prefix"),
		ModuleRefPrefixLegacy: v.GetString("module_ref_prefix_legacy_interop"),
		FacebookFbt:           v.GetString("facebook_fbt"),
		MaxLiteralLen:         v.GetInt("max_literal_len"),
		ComponentSyntax:       v.GetBool("component_syntax"),
		ExactByDefault:        v.GetBool("exact_by_default"),
		EnableEnums:           v.GetBool("enable_enums"),

		EnableRelayIntegration:       v.GetBool("relay_integration"),
		RelayIntegrationModulePrefix: v.GetString("relay_integration_module_prefix"),

		NodeMainFields: v.GetStringSlice("node_main_fields"),
		Distributed:    v.GetBool("distributed"),

		EnableConditionalTypes: v.GetBool("conditional_types"),
		EnableMappedTypes:      v.GetBool("mapped_types"),
		TupleEnhancements:      v.GetBool("tuple_enhancements"),

		MaxHeaderTokens: v.GetInt("max_header_tokens"),
	}

	if types := v.GetStringSlice("suppress_types"); len(types) > 0 {
		g.SuppressTypes = make(map[string]struct{}, len(types))
		for _, t := range types {
			g.SuppressTypes[t] = struct{}{}
		}
	}

	var err error
	if g.RelayIntegrationExcludes, err = compilePatterns(v.GetStringSlice("relay_integration_excludes")); err != nil {
		return g, err
	}
	if g.RelayIntegrationModulePrefixIncludes, err = compilePatterns(v.GetStringSlice("relay_integration_module_prefix_includes")); err != nil {
		return g, err
	}
	return g, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// loadBlobStore connects the CAS uploader when distributed mode is on and an
// endpoint is configured.
func loadBlobStore(ctx context.Context, root string, g options.GlobalOptions, log *slog.Logger) ports.BlobStore {
	if !g.Distributed {
		return nil
	}
	v := viper.New()
	v.SetConfigName(".jsig")
	v.SetConfigType("yaml")
	v.AddConfigPath(root)
	v.SetEnvPrefix("JSIG")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	endpoint := v.GetString("cas.endpoint")
	if endpoint == "" {
		log.Warn("distributed mode on but cas.endpoint unset; signatures stay local")
		return nil
	}

	blobs, err := minio.NewBlobStore(ctx, minio.Config{
		Endpoint:  endpoint,
		AccessKey: v.GetString("cas.access_key"),
		SecretKey: v.GetString("cas.secret_key"),
		Bucket:    v.GetString("cas.bucket"),
		Secure:    v.GetBool("cas.secure"),
	})
	if err != nil {
		log.Warn("cas connect failed; signatures stay local", "err", err)
		return nil
	}
	return blobs
}

// openApp builds the App for a command invocation.
func openApp(ctx context.Context, root string) (*app.App, error) {
	log := setupLogger()
	global, err := loadGlobalOptions(root)
	if err != nil {
		return nil, err
	}
	return app.New(app.Config{
		ProjectRoot: root,
		Workers:     flagWorkers,
		Global:      global,
		Blobs:       loadBlobStore(ctx, root, global, log),
		Log:         log,
		Profile:     flagProfile,
	})
}
