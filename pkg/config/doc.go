// Package config loads lsx configuration from a YAML file and LSX_*
// environment variables.
//
// # File
//
// The file lives at $LSX_CONFIG or ~/.config/lsx/config.yaml:
//
//	plugins_dir: ~/.local/share/lsx/plugins
//	enabled_plugins: [git, sizes]
//	plugins:
//	  probe_timeout: 5s
//	  compatibility:
//	    mode: major      # any, exact, major, range
//	    version: 1.0.0   # for range: "1.2.0,2.0.0"
//	  remove_on_clean: false
//	listing:
//	  parallel_threshold: 64
//	  workers: 0         # 0 = GOMAXPROCS
//	field_cache:
//	  size: 4096         # 0 disables the cache
//	  ttl: 30s
//	log:
//	  level: warn
//	  format: text       # text, json
//	metrics:
//	  enabled: false
//	  textfile: ""
//
// # Environment
//
// Environment variables override the file:
//
//	LSX_PLUGINS_DIR, LSX_ENABLED_PLUGINS (comma separated)
//	LSX_PROBE_TIMEOUT, LSX_COMPAT_MODE, LSX_COMPAT_VERSION, LSX_REMOVE_ON_CLEAN
//	LSX_PARALLEL_THRESHOLD, LSX_WORKERS
//	LSX_FIELD_CACHE_SIZE, LSX_FIELD_CACHE_TTL
//	LSX_LOG_LEVEL, LSX_LOG_FORMAT
//	LSX_METRICS_ENABLED, LSX_METRICS_TEXTFILE
//
// # Enabled plugins
//
// EnabledStore adapts a Config to plugins.EnabledStore so enabling or
// disabling a plugin rewrites the file:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	registry := plugins.NewRegistry(plugins.Options{
//		EnabledStore: config.NewEnabledStore(cfg),
//	})
package config
