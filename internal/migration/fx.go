package migration

import (
	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/partnerpay/settlo/internal/commission/domain"
	"github.com/partnerpay/settlo/internal/config"
	mappingdomain "github.com/partnerpay/settlo/internal/mapping/domain"
	ratedomain "github.com/partnerpay/settlo/internal/ratetable/domain"
	schemedomain "github.com/partnerpay/settlo/internal/scheme/domain"
	"github.com/partnerpay/settlo/internal/seed"
	transferdomain "github.com/partnerpay/settlo/internal/transfer/domain"
	walletdomain "github.com/partnerpay/settlo/internal/wallet/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres dialects are the local and test path; AutoMigrate
			// keeps them usable without dialect-specific SQL files.
			if err := conn.AutoMigrate(
				&schemedomain.Scheme{},
				&ratedomain.BBPSCommission{},
				&ratedomain.PayoutCharge{},
				&ratedomain.MDRRate{},
				&mappingdomain.EntityMapping{},
				&walletdomain.Wallet{},
				&walletdomain.WalletLedgerEntry{},
				&commissiondomain.CommissionLedger{},
				&transferdomain.TransferRecord{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultScheme(conn, genID)
	}),
)
