package config_test

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/irakobi/wildlife-conservation-backend/internal/config"
)

func TestConfigDefaults(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it carries sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.DatabaseURL, convey.ShouldEqual, "")
			convey.So(cfg.KoboServerURL, convey.ShouldEqual, "https://kf.kobotoolbox.org")
			convey.So(cfg.KoboTimeoutSeconds, convey.ShouldEqual, 30)
			convey.So(cfg.KoboRetryCount, convey.ShouldEqual, 2)
			convey.So(cfg.SyncQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.SyncWorkerCount, convey.ShouldEqual, 4)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.SchemaCacheTTLSeconds, convey.ShouldEqual, 300)
			convey.So(cfg.MaxListLimit, convey.ShouldEqual, 100)
		})

		convey.Convey("Then duration helpers convert seconds", func() {
			convey.So(cfg.KoboTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.SchemaCacheTTL(), convey.ShouldEqual, 5*time.Minute)
		})
	})
}
