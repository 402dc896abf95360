package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/upcymarket/orderapi/internal/config"
	"github.com/upcymarket/orderapi/internal/domain"
	"github.com/upcymarket/orderapi/internal/service"
	"github.com/upcymarket/orderapi/internal/upcy"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/fetch-orders/main.go <bearer-token> [filter]")
		fmt.Println("Filters: all, before_transaction, in_transaction, completed")
		os.Exit(1)
	}

	token := os.Args[1]
	bucket := domain.FilterAll
	if len(os.Args) > 2 {
		bucket = domain.ParseFilterBucket(os.Args[2])
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := upcy.NewClient(cfg.Upcy, logger)
	svc := service.NewOrderService(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, err := svc.Aggregate(ctx, token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to aggregate orders: %v\n", err)
		os.Exit(1)
	}

	filtered := domain.FilterOrders(orders, bucket)
	if len(filtered) == 0 {
		fmt.Printf("No orders in bucket %q.\n", bucket)
		return
	}

	fmt.Printf("Found %d order(s) in bucket %q:\n\n", len(filtered), bucket)
	for _, order := range filtered {
		fmt.Printf("%s  %s\n", order.OrderDate.Format("2006-01-02"), order.ServiceTitle)
		fmt.Printf("  Reformer: %s\n", order.ReformerName)
		fmt.Printf("  Price: %d\n", order.TotalPrice)
		fmt.Printf("  Mode: %s\n", order.Transaction.Option)
		fmt.Printf("  Status: %s\n", domain.Classify(order.OrderStatus))
		fmt.Printf("  Order ID: %s\n\n", order.OrderUUID)
	}
}
