package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"moff.io/web3session/internal/config"
	"moff.io/web3session/pkg/eip1193"
	"moff.io/web3session/pkg/errors"
	"moff.io/web3session/pkg/log"
	"moff.io/web3session/pkg/session"
	"moff.io/web3session/pkg/storage"
)

const qrCodeFile = "wallet_pairing_qr.png"

func main() {
	configPath := flag.String("config-path", "config.yml", "The path to the configuration file")
	flag.Parse()

	conf, err := config.Read(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(conf.LogLevel)
	if err := errors.NewSentryReporter(conf.SentryDSN, time.Minute); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	eth := buildSession(ctx, conf)

	if !eth.Restore(ctx) {
		connect(ctx, eth)
	}
	drainEvents(ctx, eth)
}

func buildSession(ctx context.Context, conf *config.Configuration) *session.Ethereum {
	builder := session.NewBuilder().
		ChainID(conf.ChainID).
		Name(conf.App.Name).
		Description(conf.App.Description).
		URL(conf.App.URL).
		WalletConnectProjectID(conf.WalletConnectProjectID).
		RPCNode(conf.RPCNode)
	for _, icon := range conf.App.Icons {
		builder.AddIcon(icon)
	}

	if conf.WalletEndpoint != "" {
		bridge, err := eip1193.DialBridge(ctx, conf.WalletEndpoint)
		if err != nil {
			log.Warnf("wallet endpoint not reachable:%v", err)
		} else {
			builder.Bridge(bridge)
		}
	}
	if conf.Redis != nil {
		store, err := storage.DialRedis(ctx, conf.Redis.Addr(), conf.Redis.DB)
		if err != nil {
			log.Fatal(err)
		}
		builder.Store(store)
	}
	return builder.Build()
}

func connect(ctx context.Context, eth *session.Ethereum) {
	wallets := eth.AvailableWallets()
	if len(wallets) == 0 {
		log.Fatal("no wallet available: configure a wallet endpoint or a walletconnect project id")
	}
	log.Infof("connecting via %v wallet", wallets[0])
	if err := eth.Connect(ctx, wallets[0]); err != nil {
		log.Fatal(err)
	}
}

func drainEvents(ctx context.Context, eth *session.Ethereum) {
	for {
		event, err := eth.Next(ctx)
		if err != nil {
			log.Fatalf("session terminated:%v", err)
		}
		if event == nil {
			continue
		}
		log.Infof("session event: %v", event)

		switch event.Kind {
		case session.EventConnectionWaiting:
			writePairingQR(event.PairingURI)
		case session.EventAccountsChanged:
			if len(event.Accounts) > 0 {
				signSample(ctx, eth, event.Accounts[0])
			}
		case session.EventDisconnected:
			log.Info("wallet disconnected, exiting")
			return
		}
	}
}

func writePairingQR(uri string) {
	png, err := session.PairingQRCode(uri)
	if err != nil {
		log.Errorf("render pairing qr:%v", err)
		return
	}
	if err := os.WriteFile(qrCodeFile, png, 0o644); err != nil {
		log.Errorf("write pairing qr:%v", err)
		return
	}
	log.Infof("scan %v with your wallet to approve the session", qrCodeFile)
}

// signSample asks the wallet to sign a small EIP-712 payload, proving the
// session end to end.
func signSample(ctx context.Context, eth *session.Ethereum, from common.Address) {
	chainID := uint64(1)
	if id := eth.ChainID(); id != nil {
		chainID = *id
	}
	payload := map[string]interface{}{
		"types": map[string]interface{}{
			"EIP712Domain": []map[string]string{
				{"name": "name", "type": "string"},
				{"name": "chainId", "type": "uint256"},
			},
			"Greeting": []map[string]string{
				{"name": "contents", "type": "string"},
			},
		},
		"primaryType": "Greeting",
		"domain": map[string]interface{}{
			"name":    "web3session demo",
			"chainId": chainID,
		},
		"message": map[string]interface{}{
			"contents": "Hello from web3session",
		},
	}
	sig, err := eth.SignTypedData(ctx, payload, from)
	if err != nil {
		log.Errorf("sign typed data:%v", err)
		return
	}
	log.Infof("typed data signed by %v: %v", from.Hex(), sig)
}
