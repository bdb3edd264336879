package main

import (
	"log"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/handler"
	"app/internal/infra/db"
	infraEvent "app/internal/infra/event"
	infraRepo "app/internal/infra/repository"
	"app/internal/metrics"
	"app/internal/payment"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無ければ環境変数だけで動かす
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Refund{},
		&model.StockMovement{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	refundRepo := infraRepo.NewRefundGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//決済ゲートウェイ
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Currency)

	//注文イベント発行。ブローカー未設定ならNop
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := infraEvent.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	shopMetrics := metrics.NewShopMetrics()

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, gateway, publisher, shopMetrics, usecase.CheckoutConfig{
		SuccessURL: cfg.FEURL + "/checkout/success",
		CancelURL:  cfg.FEURL + "/checkout/cancel",
		Currency:   cfg.Currency,
	})
	orderUC := usecase.NewOrderUsecase(txManager, orderRepo, refundRepo, gateway, publisher, shopMetrics)
	webhookUC := usecase.NewWebhookUsecase(gateway, orderRepo, publisher, shopMetrics)

	//Handler生成
	productH := handler.NewProductHandler(productUC)
	cartH := handler.NewCartHandler(cartUC, checkoutUC, cfg)
	orderH := handler.NewOrderHandler(orderUC, checkoutUC)
	webhookH := handler.NewWebhookHandler(webhookUC)

	//Server起動
	addr := ":" + cfg.Port
	if err := server.Start(addr, productH, cartH, orderH, webhookH); err != nil {
		log.Fatal(err)
	}
}
