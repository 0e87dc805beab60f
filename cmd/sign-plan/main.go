package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/uhyunpark/perpdesk/pkg/app/core"
	"github.com/uhyunpark/perpdesk/pkg/app/core/market"
	"github.com/uhyunpark/perpdesk/pkg/app/core/orderplan"
	"github.com/uhyunpark/perpdesk/pkg/app/core/transaction"
	"github.com/uhyunpark/perpdesk/pkg/crypto"
)

// sign-plan builds an order plan or transfer locally, signs it with EIP-712
// and prints the SignedTransaction body for POST /api/v1/transactions.

func loadSigner(cmd *cli.Command) (*crypto.Signer, error) {
	if key := cmd.String("key"); key != "" {
		return crypto.FromPrivateKeyHex(key)
	}
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "Generated key for %s: %s (KEEP SECRET!)\n", signer.Address().Hex(), signer.PrivateKeyHex())
	return signer, nil
}

func loadMarkets(cmd *cli.Command) (*market.Registry, error) {
	if path := cmd.String("markets"); path != "" {
		return market.LoadFile(path)
	}
	return market.NewDefaultRegistry(), nil
}

func optionalDecimal(cmd *cli.Command, name string) (optional.Option[decimal.Decimal], error) {
	v := cmd.String(name)
	if v == "" {
		return optional.None[decimal.Decimal](), nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return optional.Some(d), nil
}

func nonceAndDeadline(cmd *cli.Command) (*big.Int, *big.Int, error) {
	deadline := big.NewInt(int64(cmd.Int("deadline")))
	if v := cmd.String("nonce"); v != "" {
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, nil, fmt.Errorf("--nonce: invalid integer %q", v)
		}
		return n, deadline, nil
	}
	n, err := crypto.GenerateNonce()
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).SetUint64(n), deadline, nil
}

// emit verifies tx the same way the server will, then prints it.
func emit(cmd *cli.Command, tx *transaction.SignedTransaction) error {
	verifier := transaction.NewVerifier(crypto.DefaultDomain(int64(cmd.Int("chain-id"))), nil)
	owner, err := verifier.Verify(tx)
	if err != nil {
		return fmt.Errorf("self-verification failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Signature valid, signer %s\n", owner.Hex())

	out, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func planAction(ctx context.Context, cmd *cli.Command) error {
	signer, err := loadSigner(cmd)
	if err != nil {
		return err
	}
	markets, err := loadMarkets(cmd)
	if err != nil {
		return err
	}

	index := uint16(cmd.Int("market"))
	m, ok := markets.Perp(index)
	if !ok {
		return fmt.Errorf("no perp market with index %d", index)
	}

	size, err := decimal.NewFromString(cmd.String("size"))
	if err != nil {
		return fmt.Errorf("--size: %w", err)
	}

	intent := orderplan.TradeIntent{
		MarketIndex: index,
		Side:        core.ParseSide(strings.ToUpper(cmd.String("side"))),
		Size:        size,
		Kind:        core.ParseOrderKind(strings.ToUpper(cmd.String("type"))),
	}
	for name, dst := range map[string]*optional.Option[decimal.Decimal]{
		"price":   &intent.Price,
		"trigger": &intent.TriggerPrice,
		"tp":      &intent.TakeProfitPrice,
		"sl":      &intent.StopLossPrice,
	} {
		if *dst, err = optionalDecimal(cmd, name); err != nil {
			return err
		}
	}
	if legs := cmd.Int("ladder-legs"); legs > 0 {
		lo, err := decimal.NewFromString(cmd.String("ladder-min"))
		if err != nil {
			return fmt.Errorf("--ladder-min: %w", err)
		}
		hi, err := decimal.NewFromString(cmd.String("ladder-max"))
		if err != nil {
			return fmt.Errorf("--ladder-max: %w", err)
		}
		intent.Ladder = optional.Some(orderplan.Ladder{Legs: int(legs), MinPrice: lo, MaxPrice: hi})
	}

	var opts []orderplan.Option
	if cmd.Bool("remainder-to-last") {
		opts = append(opts, orderplan.WithRemainderToLastLeg())
	}
	specs, err := orderplan.BuildOrderSpecs(intent, m, opts...)
	if err != nil {
		return err
	}

	nonce, deadline, err := nonceAndDeadline(cmd)
	if err != nil {
		return err
	}
	msg := &crypto.PlanMessage{
		Owner:        signer.Address(),
		SubAccountID: uint16(cmd.Int("subaccount")),
		Nonce:        nonce,
		Deadline:     deadline,
		Orders:       specs,
	}

	typed := crypto.NewTypedDataSigner(crypto.DefaultDomain(int64(cmd.Int("chain-id"))))
	sig, err := typed.SignPlan(signer, msg)
	if err != nil {
		return fmt.Errorf("sign plan: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Plan for %s: %d leg(s), %d base units\n", m.Symbol, len(specs), orderplan.TotalBaseAmount(specs))
	return emit(cmd, &transaction.SignedTransaction{
		Type:      transaction.TxTypePlan,
		Plan:      transaction.FromPlanMessage(msg),
		Signature: fmt.Sprintf("0x%x", sig),
	})
}

func transferAction(ctx context.Context, cmd *cli.Command) error {
	signer, err := loadSigner(cmd)
	if err != nil {
		return err
	}
	markets, err := loadMarkets(cmd)
	if err != nil {
		return err
	}

	index := uint16(cmd.Int("market"))
	m, ok := markets.Spot(index)
	if !ok {
		return fmt.Errorf("no spot market with index %d", index)
	}
	amount, err := decimal.NewFromString(cmd.String("amount"))
	if err != nil {
		return fmt.Errorf("--amount: %w", err)
	}

	kind := orderplan.TransferKind(strings.ToUpper(cmd.String("kind")))
	spec, err := orderplan.BuildTransfer(kind, amount, uint16(cmd.Int("subaccount")), m)
	if err != nil {
		return err
	}

	nonce, deadline, err := nonceAndDeadline(cmd)
	if err != nil {
		return err
	}
	msg := &crypto.TransferMessage{
		Owner:    signer.Address(),
		Transfer: spec,
		Nonce:    nonce,
		Deadline: deadline,
	}

	typed := crypto.NewTypedDataSigner(crypto.DefaultDomain(int64(cmd.Int("chain-id"))))
	sig, err := typed.SignTransfer(signer, msg)
	if err != nil {
		return fmt.Errorf("sign transfer: %w", err)
	}

	return emit(cmd, &transaction.SignedTransaction{
		Type:      transaction.TxTypeTransfer,
		Transfer:  transaction.FromTransferMessage(msg),
		Signature: fmt.Sprintf("0x%x", sig),
	})
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "hex private key; a fresh key is generated when empty", Sources: cli.EnvVars("SIGNER_KEY")},
		&cli.StringFlag{Name: "markets", Usage: "YAML market table; defaults to the built-in table"},
		&cli.IntFlag{Name: "chain-id", Value: 1337, Usage: "EIP-712 domain chain id"},
		&cli.IntFlag{Name: "market", Aliases: []string{"m"}, Usage: "market index", Required: true},
		&cli.IntFlag{Name: "subaccount", Usage: "subaccount id"},
		&cli.StringFlag{Name: "nonce", Usage: "decimal nonce; random when empty"},
		&cli.IntFlag{Name: "deadline", Usage: "unix seconds, 0 = no expiry"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "sign-plan",
		Usage: "Build and sign order plans or transfers for the perp desk",
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Sign an order plan (single, bracket or ladder)",
				Flags: append(commonFlags(),
					&cli.StringFlag{Name: "size", Aliases: []string{"s"}, Usage: "base asset size, e.g. 1.5", Required: true},
					&cli.StringFlag{Name: "side", Value: "LONG", Usage: "LONG or SHORT"},
					&cli.StringFlag{Name: "type", Value: "MARKET", Usage: "MARKET, LIMIT, TRIGGER_MARKET or TRIGGER_LIMIT"},
					&cli.StringFlag{Name: "price", Usage: "limit price"},
					&cli.StringFlag{Name: "trigger", Usage: "trigger price"},
					&cli.StringFlag{Name: "tp", Usage: "take-profit price"},
					&cli.StringFlag{Name: "sl", Usage: "stop-loss price"},
					&cli.IntFlag{Name: "ladder-legs", Usage: "number of scaled limit orders; 0 disables the ladder"},
					&cli.StringFlag{Name: "ladder-min", Usage: "lowest ladder price"},
					&cli.StringFlag{Name: "ladder-max", Usage: "highest ladder price"},
					&cli.BoolFlag{Name: "remainder-to-last", Usage: "put the ladder size remainder on the last leg"},
				),
				Action: planAction,
			},
			{
				Name:  "transfer",
				Usage: "Sign a deposit or withdrawal",
				Flags: append(commonFlags(),
					&cli.StringFlag{Name: "kind", Value: "DEPOSIT", Usage: "DEPOSIT or WITHDRAW"},
					&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Usage: "token amount, e.g. 100.5", Required: true},
				),
				Action: transferAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
