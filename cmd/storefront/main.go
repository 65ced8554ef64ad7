// Command storefront is a thin CLI over the client stack: local cart,
// session manager and order submission against a running storefront API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fjod/go_storefront/internal/api"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cartstore"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/localstore"
	"github.com/fjod/go_storefront/internal/session"
)

func main() {
	var (
		serverURL   = flag.String("server", envOr("STOREFRONT_SERVER", "http://localhost:5000"), "storefront API base URL")
		stateDir    = flag.String("state", envOr("STOREFRONT_STATE", defaultStateDir()), "local state directory")
		requireAuth = flag.Bool("require-auth", false, "block checkout without a verified login")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	slots, err := localstore.New(*stateDir)
	if err != nil {
		log.Fatalf("open state dir: %v", err)
	}

	client := api.NewClient(*serverURL, 15*time.Second)
	sessions := session.NewManager(slots, client)
	controller := cart.NewController(
		cartstore.New(slots),
		client,
		sessions,
		cart.Config{RequireAuth: *requireAuth},
	)

	ctx := context.Background()
	if err := run(ctx, flag.Args(), controller, sessions, client); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string, controller *cart.Controller, sessions *session.Manager, client *api.Client) error {
	switch cmd := args[0]; cmd {
	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		name := fs.String("name", "", "product name")
		price := fs.Float64("price", 0, "unit price")
		discount := fs.Float64("discount", 0, "discounted unit price")
		_ = fs.Parse(args[1:])
		if *id == "" {
			return fmt.Errorf("add: -id is required")
		}
		controller.AddItem(domain.CartLine{
			ProductID:           *id,
			Name:                *name,
			UnitPrice:           *price,
			DiscountedUnitPrice: *discount,
		})
		printCart(controller)
		return nil

	case "qty":
		fs := flag.NewFlagSet("qty", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		n := fs.Int("n", 1, "new quantity")
		_ = fs.Parse(args[1:])
		controller.UpdateQuantity(*id, *n)
		printCart(controller)
		return nil

	case "remove":
		fs := flag.NewFlagSet("remove", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(args[1:])
		controller.RemoveItem(*id)
		printCart(controller)
		return nil

	case "list":
		printCart(controller)
		return nil

	case "clear":
		controller.Clear()
		fmt.Println("cart cleared")
		return nil

	case "register":
		email, password, err := credentialArgs("register", args[1:])
		if err != nil {
			return err
		}
		if err := client.Register(ctx, email, password, "customer"); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		fmt.Println("registered", email)
		return nil

	case "login":
		email, password, err := credentialArgs("login", args[1:])
		if err != nil {
			return err
		}
		identity, err := sessions.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		fmt.Printf("logged in as %s (%s)\n", identity.User.Email, identity.User.Role)
		return nil

	case "logout":
		sessions.Logout(ctx)
		fmt.Println("logged out")
		return nil

	case "whoami":
		if !sessions.CheckAuthStatus(ctx, true) {
			fmt.Println("anonymous")
			return nil
		}
		identity := sessions.Current()
		fmt.Printf("%s (%s)\n", identity.User.Email, identity.User.Role)
		return nil

	case "checkout":
		fs := flag.NewFlagSet("checkout", flag.ExitOnError)
		customer := fs.String("customer", "", "customer identifier for guest checkout")
		_ = fs.Parse(args[1:])
		orderID, err := controller.Checkout(ctx, *customer)
		if err != nil {
			return fmt.Errorf("checkout: %s", controller.CheckoutError())
		}
		fmt.Println("order placed:", orderID)
		return nil

	case "order":
		fs := flag.NewFlagSet("order", flag.ExitOnError)
		id := fs.String("id", "", "order id")
		_ = fs.Parse(args[1:])
		order, err := client.GetOrder(ctx, sessions.Token(), *id)
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		fmt.Printf("order %s  status=%s  total=%.2f\n", order.ID, order.Status, order.TotalAmount)
		for _, item := range order.Items {
			fmt.Printf("  %s x%d @ %.2f\n", item.ProductID, item.Quantity, item.UnitPrice)
		}
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func credentialArgs(cmd string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return "", "", fmt.Errorf("%s: -email and -password are required", cmd)
	}
	return *email, *password, nil
}

func printCart(c *cart.Controller) {
	items := c.Items()
	if items.IsEmpty() {
		fmt.Println("cart is empty")
		return
	}
	for _, l := range items {
		fmt.Printf("%s  %q x%d @ %.2f\n", l.ProductID, l.Name, l.Quantity, l.EffectivePrice())
	}
	fmt.Printf("total: %.2f\n", c.Total())
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(home, ".storefront")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront [flags] <command> [args]

commands:
  add -id ID [-name NAME] [-price P] [-discount D]
  qty -id ID -n N
  remove -id ID
  list
  clear
  register -email E -password P
  login -email E -password P
  logout
  whoami
  checkout [-customer ID]
  order -id ID`)
}
