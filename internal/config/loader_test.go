package config_test

import (
	"os"
	"testing"

	"github.com/perchsocial/cohort-engine/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MinGroupSize, convey.ShouldEqual, 3)
				convey.So(cfg.MaxGroupSize, convey.ShouldEqual, 4)
				convey.So(cfg.CooldownWeeks, convey.ShouldEqual, 8)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 256)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COHORT_ADDR", ":8080")
			_ = os.Setenv("COHORT_QUEUE_SIZE", "64")
			_ = os.Setenv("COHORT_WORKER_COUNT", "4")
			_ = os.Setenv("COHORT_COOLDOWN_WEEKS", "12")
			_ = os.Setenv("COHORT_ADMIN_TOKEN", "s3cret")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.CooldownWeeks, convey.ShouldEqual, 12)
				convey.So(cfg.AdminToken, convey.ShouldEqual, "s3cret")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
min_group_size: 4
max_group_size: 6
acceptance_threshold: 0.5
weights:
  specialty: 0.5
  interests: 0.2
  social: 0.1
  availability: 0.1
  locality: 0.05
  lifestyle: 0.05
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COHORT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MinGroupSize, convey.ShouldEqual, 4)
				convey.So(cfg.MaxGroupSize, convey.ShouldEqual, 6)
				convey.So(cfg.AcceptanceThreshold, convey.ShouldEqual, 0.5)
				convey.So(cfg.Weights.Specialty, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
worker_count: 8
queue_size: 128
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("COHORT_CONFIG", tmpFile)
			_ = os.Setenv("COHORT_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")  // env wins
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8) // from file
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128) // from file
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("COHORT_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an empty addr", func() {
			_ = os.Setenv("COHORT_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the configured weights do not sum to one", func() {
			_ = os.Setenv("COHORT_WEIGHTS__SPECIALTY", "0.9")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then the process must not start", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When group size bounds are inverted", func() {
			_ = os.Setenv("COHORT_MIN_GROUP_SIZE", "5")
			_ = os.Setenv("COHORT_MAX_GROUP_SIZE", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"COHORT_CONFIG",
		"COHORT_ADDR",
		"COHORT_ADMIN_TOKEN",
		"COHORT_QUEUE_SIZE",
		"COHORT_WORKER_COUNT",
		"COHORT_COOLDOWN_WEEKS",
		"COHORT_MIN_GROUP_SIZE",
		"COHORT_MAX_GROUP_SIZE",
		"COHORT_WEIGHTS__SPECIALTY",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "cohort-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
