package app

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"draw-service/internal/config"
	"draw-service/internal/services"
)

// Services is the wired service graph shared by the API, worker and drawctl.
type Services struct {
	Rules   services.Rules
	Ledger  *services.LedgerService
	Users   *services.UserService
	Entries *services.EntryService
	Draws   *services.DrawService
	Claims  *services.ClaimService
	Tasks   *services.TaskService
}

func RulesFromConfig(cfg *config.Config) services.Rules {
	rules := services.DefaultRules()
	rules.EntryFee = cfg.Draw.EntryFee
	rules.CompletionThreshold = cfg.Draw.CompletionThreshold
	rules.DefaultCloseAfter = cfg.Draw.CloseAfter
	rules.TaskReward = cfg.Draw.TaskReward
	rules.LockWait = cfg.Lock.Wait
	rules.OpTimeout = cfg.DB.Timeout
	rules.SelectionTimeout = cfg.Draw.SelectionTimeout
	return rules
}

func RedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func AsynqRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// NewServices wires every service against one DB, lock space and dispatcher.
func NewServices(db *gorm.DB, locks services.Locker, node *snowflake.Node, dispatcher services.Dispatcher, rules services.Rules) *Services {
	ledger := services.NewLedgerService(db, locks, node)
	ledger.Rules = rules

	return &Services{
		Rules:   rules,
		Ledger:  ledger,
		Users:   services.NewUserService(db),
		Entries: services.NewEntryService(db, ledger, dispatcher, rules),
		Draws:   services.NewDrawService(db, ledger, locks, dispatcher, rules),
		Claims:  services.NewClaimService(db, ledger, dispatcher, rules),
		Tasks:   services.NewTaskService(db, locks, rules),
	}
}
