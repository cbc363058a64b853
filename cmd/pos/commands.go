package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	appidentity "github.com/erp/pos/internal/application/identity"
	apppartner "github.com/erp/pos/internal/application/partner"
	"github.com/erp/pos/internal/application/pos"
	apptrade "github.com/erp/pos/internal/application/trade"
	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/inventory"
	"github.com/erp/pos/internal/domain/partner"
	"github.com/erp/pos/internal/domain/report"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/domain/trade"
	"github.com/shopspring/decimal"
)

var errUsage = errors.New("invalid usage, run pos -h for help")

// userView is the printable form of a user; it never includes the hash
type userView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	IsManager bool   `json:"is_manager"`
}

func viewUser(u identity.User) userView {
	return userView{ID: u.ID.String(), Username: u.Username, Role: u.Role(), IsManager: u.IsManager}
}

// periodReport is the printable form of a report query
type periodReport struct {
	From         string               `json:"from"`
	To           string               `json:"to"`
	Summary      report.PeriodSummary `json:"summary"`
	Cashiers     []report.CashierRow  `json:"cashiers"`
	Transactions []trade.Transaction  `json:"transactions"`
}

// run executes one command against app and writes its result to out as JSON
func run(ctx context.Context, app *pos.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	switch args[0] {
	case "user":
		return runUser(ctx, app, sub, tail(args, 2), out)
	case "login":
		return runLogin(ctx, app, args[1:], out)
	case "item":
		return runItem(ctx, app, sub, tail(args, 2), out)
	case "customer":
		return runCustomer(ctx, app, sub, tail(args, 2), out)
	case "sale":
		return runSale(ctx, app, args[1:], out)
	case "report":
		return runReport(app, sub, tail(args, 2), out)
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func runUser(ctx context.Context, app *pos.App, sub string, args []string, out io.Writer) error {
	switch sub {
	case "add":
		fs := newFlagSet("user add")
		username := fs.String("username", "", "Username")
		password := fs.String("password", "", "Password")
		manager := fs.Bool("manager", false, "Grant the manager role")
		if err := fs.Parse(args); err != nil {
			return err
		}
		user, err := app.Users.AddUser(ctx, appidentity.NewUserInput{
			Username:  *username,
			Password:  *password,
			IsManager: *manager,
		})
		if err != nil {
			return err
		}
		return writeJSON(out, viewUser(user))

	case "list":
		users := app.Users.All()
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, viewUser(u))
		}
		return writeJSON(out, views)

	case "passwd":
		fs := newFlagSet("user passwd")
		username := fs.String("username", "", "Username")
		password := fs.String("password", "", "New password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := app.Users.ChangePassword(ctx, *username, *password); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"username": *username, "status": "password changed"})

	default:
		return fmt.Errorf("unknown user command %q: %w", sub, errUsage)
	}
}

func runLogin(ctx context.Context, app *pos.App, args []string, out io.Writer) error {
	fs := newFlagSet("login")
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	user, err := app.Auth.Login(ctx, appidentity.LoginInput{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	return writeJSON(out, viewUser(user))
}

func runItem(ctx context.Context, app *pos.App, sub string, args []string, out io.Writer) error {
	switch sub {
	case "add":
		fs := newFlagSet("item add")
		name := fs.String("name", "", "Item name")
		category := fs.String("category", "", "Category")
		price := fs.String("price", "0", "Sale price")
		quantity := fs.Int("quantity", 0, "Units bought in")
		supplier := fs.String("supplier", "", "Supplier")
		purchasePrice := fs.String("purchase-price", "0", "Purchase price per unit")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := parseDecimal("price", *price)
		if err != nil {
			return err
		}
		pp, err := parseDecimal("purchase-price", *purchasePrice)
		if err != nil {
			return err
		}
		item, err := inventory.NewInventoryItem(*name, *category, p, *quantity, *supplier, pp, *quantity)
		if err != nil {
			return err
		}
		if err := app.Inventory.AddItem(ctx, *item); err != nil {
			return err
		}
		return writeJSON(out, item)

	case "restock":
		fs := newFlagSet("item restock")
		name := fs.String("name", "", "Item name")
		amount := fs.Int("amount", 0, "Units bought in")
		price := fs.String("price", "0", "Purchase price per unit")
		if err := fs.Parse(args); err != nil {
			return err
		}
		p, err := parseDecimal("price", *price)
		if err != nil {
			return err
		}
		if err := app.Inventory.AddStock(ctx, *name, *amount, p); err != nil {
			return err
		}
		item, _ := app.Inventory.FindItem(*name)
		return writeJSON(out, item)

	case "remove":
		fs := newFlagSet("item remove")
		name := fs.String("name", "", "Item name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := app.Inventory.RemoveItem(ctx, *name); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"name": *name, "status": "removed"})

	case "list":
		fs := newFlagSet("item list")
		query := fs.String("q", "", "Only items whose name contains this text")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return writeJSON(out, app.Inventory.Search(*query))

	case "report":
		fs := newFlagSet("item report")
		name := fs.String("name", "", "Item name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		item, ok := app.Inventory.FindItem(*name)
		if !ok {
			return shared.NewDomainErrorf(shared.CodeNotFound, "Item %q not found", *name)
		}
		return writeJSON(out, app.Reports.ItemReport(item))

	case "low-stock":
		fs := newFlagSet("item low-stock")
		threshold := fs.Int("threshold", app.Inventory.LowStockThreshold(), "Quantity at or below which an item is listed")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return writeJSON(out, app.Inventory.LowStock(*threshold))

	default:
		return fmt.Errorf("unknown item command %q: %w", sub, errUsage)
	}
}

func runCustomer(ctx context.Context, app *pos.App, sub string, args []string, out io.Writer) error {
	switch sub {
	case "add":
		fs := newFlagSet("customer add")
		name := fs.String("name", "", "First name")
		surname := fs.String("surname", "", "Surname")
		phone := fs.String("phone", "", "Phone number")
		points := fs.Int("points", 0, "Initial loyalty points")
		if err := fs.Parse(args); err != nil {
			return err
		}
		customer, err := app.Customers.AddCustomer(ctx, apppartner.NewCustomerInput{
			Name:          *name,
			Surname:       *surname,
			Phone:         *phone,
			LoyaltyPoints: *points,
		})
		if err != nil {
			return err
		}
		return writeJSON(out, customer)

	case "list":
		return writeJSON(out, app.Customers.All())

	case "history":
		fs := newFlagSet("customer history")
		id := fs.Int("id", 0, "Customer ID")
		if err := fs.Parse(args); err != nil {
			return err
		}
		history, err := app.Customers.History(*id)
		if err != nil {
			return err
		}
		return writeJSON(out, struct {
			apppartner.CustomerHistory
			Sales []trade.Transaction `json:"sales"`
		}{history, app.Customers.GetTransactionsForCustomer(*id)})

	default:
		return fmt.Errorf("unknown customer command %q: %w", sub, errUsage)
	}
}

func runSale(ctx context.Context, app *pos.App, args []string, out io.Writer) error {
	fs := newFlagSet("sale")
	cashierName := fs.String("cashier", "", "Cashier username")
	password := fs.String("password", "", "Cashier password")
	items := fs.String("items", "", `Cart as "name:amount,name:amount"`)
	buyer := fs.Int("buyer", partner.WalkInID, "Customer ID, 0 for walk-in")
	redeem := fs.Bool("redeem", false, "Redeem one block of loyalty points")
	total := fs.String("total", "", "Amount paid (default: cart total minus discount)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cashier, err := app.Auth.Login(ctx, appidentity.LoginInput{Username: *cashierName, Password: *password})
	if err != nil {
		return err
	}

	cart, err := buildCart(app, *items)
	if err != nil {
		return err
	}
	subtotal := trade.CartTotal(cart)

	discount := 0
	if *redeem {
		customer, ok := app.Customers.FindCustomer(*buyer)
		if !ok {
			return shared.ErrRedemptionRejected
		}
		r, err := app.Reports.LoyaltyRedemption(customer, subtotal, discount)
		if err != nil {
			return err
		}
		discount = r.Discount
	}

	paid := subtotal.Sub(decimal.NewFromInt(int64(discount)))
	if *total != "" {
		if paid, err = parseDecimal("total", *total); err != nil {
			return err
		}
	}

	txn, err := app.Sales.ProcessSale(ctx, apptrade.SaleRequest{
		Cart:      cart,
		Cashier:   cashier,
		BuyerID:   *buyer,
		TotalCost: paid,
		Discount:  discount,
	})
	if err != nil && txn.TransactionID == 0 {
		return err
	}
	if werr := writeJSON(out, txn); werr != nil {
		return werr
	}
	return err
}

func runReport(app *pos.App, sub string, args []string, out io.Writer) error {
	loc := app.Reports.Location()
	now := time.Now().In(loc)

	var (
		txns     []trade.Transaction
		from, to time.Time
	)
	switch sub {
	case "daily":
		fs := newFlagSet("report daily")
		date := fs.String("date", now.Format(time.DateOnly), "Day as YYYY-MM-DD")
		if err := fs.Parse(args); err != nil {
			return err
		}
		day, err := time.ParseInLocation(time.DateOnly, *date, loc)
		if err != nil {
			return shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid date %q", *date)
		}
		txns = app.Reports.DailyReport(day)
		from, to = day, day.AddDate(0, 0, 1)

	case "monthly":
		fs := newFlagSet("report monthly")
		year := fs.Int("year", now.Year(), "Year")
		month := fs.Int("month", int(now.Month()), "Month, 1-12")
		if err := fs.Parse(args); err != nil {
			return err
		}
		var err error
		txns, err = app.Reports.MonthlyReport(*year, time.Month(*month))
		if err != nil {
			return err
		}
		from = time.Date(*year, time.Month(*month), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0)

	case "yearly":
		fs := newFlagSet("report yearly")
		year := fs.Int("year", now.Year(), "Year")
		if err := fs.Parse(args); err != nil {
			return err
		}
		txns = app.Reports.YearlyReport(*year)
		from = time.Date(*year, time.January, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(1, 0, 0)

	default:
		return fmt.Errorf("unknown report %q: %w", sub, errUsage)
	}

	return writeJSON(out, periodReport{
		From:         from.Format(time.DateOnly),
		To:           to.Format(time.DateOnly),
		Summary:      app.Reports.PeriodSummary(txns),
		Cashiers:     app.Reports.SortedCashierSummary(txns),
		Transactions: txns,
	})
}

// buildCart resolves "name:amount" pairs against the current inventory
func buildCart(app *pos.App, lines string) ([]trade.SaleItem, error) {
	cart := make([]trade.SaleItem, 0)
	for _, part := range strings.Split(lines, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, amountStr, ok := strings.Cut(part, ":")
		if !ok {
			amountStr = "1"
		}
		amount, err := strconv.Atoi(strings.TrimSpace(amountStr))
		if err != nil {
			return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Invalid amount in %q", part)
		}
		item, found := app.Inventory.FindItem(name)
		if !found {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Item %q not found", strings.TrimSpace(name))
		}
		cart = append(cart, trade.SaleItem{Item: item, Amount: amount})
	}
	return cart, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, shared.NewDomainErrorf(shared.CodeInvalidInput, "%s must be a number, got %q", field, s)
	}
	return d, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func tail(args []string, n int) []string {
	if len(args) <= n {
		return nil
	}
	return args[n:]
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
