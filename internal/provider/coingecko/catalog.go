package coingecko

import (
	"maps"
	"strings"
)

// Catalog maps upper-case base assets to CoinGecko coin ids.
type Catalog map[string]string

// Has reports whether base is in the catalog.
func (c Catalog) Has(base string) bool {
	_, ok := c[strings.ToUpper(base)]
	return ok
}

// ID returns the coin id of base.
func (c Catalog) ID(base string) (string, bool) {
	id, ok := c[strings.ToUpper(base)]
	return id, ok
}

// DefaultCatalog returns a copy of the curated table of well known coins.
func DefaultCatalog() Catalog {
	return maps.Clone(defaultCatalog)
}

var defaultCatalog = Catalog{
	"BTC":    "bitcoin",
	"ETH":    "ethereum",
	"BNB":    "binancecoin",
	"SOL":    "solana",
	"XRP":    "ripple",
	"ADA":    "cardano",
	"DOGE":   "dogecoin",
	"AVAX":   "avalanche-2",
	"LINK":   "chainlink",
	"DOT":    "polkadot",
	"MATIC":  "matic-network",
	"UNI":    "uniswap",
	"LTC":    "litecoin",
	"ATOM":   "cosmos",
	"ETC":    "ethereum-classic",
	"XLM":    "stellar",
	"TRX":    "tron",
	"NEAR":   "near",
	"APT":    "aptos",
	"OP":     "optimism",
	"ARB":    "arbitrum",
	"SUI":    "sui",
	"PEPE":   "pepe",
	"SHIB":   "shiba-inu",
	"MKR":    "maker",
	"AAVE":   "aave",
	"CRV":    "curve-dao-token",
	"RNDR":   "render-token",
	"RENDER": "render-token",
	"FET":    "fetch-ai",
	"GRT":    "the-graph",
	"LDO":    "lido-dao",
	"WLD":    "worldcoin-org",
	"JUP":    "jupiter-exchange-solana",
	"TON":    "the-open-network",
	"KAS":    "kaspa",
	"TAO":    "bittensor",
	"ENA":    "ethena",
	"INJ":    "injective-protocol",
	"SEI":    "sei-network",
	"TIA":    "celestia",
	"NOT":    "notcoin",
	"WIF":    "dogwifcoin",
	"BONK":   "bonk",
	"PYTH":   "pyth-network",
	"AR":     "arweave",
	"RUNE":   "thorchain",
	"STX":    "blockstack",
	"FLOW":   "flow",
	"HBAR":   "hedera-hashgraph",
	"ICP":    "internet-computer",
	"ALGO":   "algorand",
	"VET":    "vechain",
	"FIL":    "filecoin",
	"SAND":   "the-sandbox",
	"MANA":   "decentraland",
	"GALA":   "gala",
	"AXS":    "axie-infinity",
	"FTM":    "fantom",
	"IMX":    "immutable-x",
	"EIGEN":  "eigenlayer",
	"SPACE":  "spacecoin",
	"STG":    "stargate-finance",
	"BLUR":   "blur",
	"PIXEL":  "pixels",
	"PORTAL": "portal-gaming",
	"STRK":   "starknet",
	"ALT":    "altlayer",
	"JTO":    "jito-governance-token",
	"MANTA":  "manta-network",
	"ZK":     "zksync",
	"W":      "wormhole",
	"IO":     "io-net",
	"ZRO":    "layerzero",
}
