package constants

import "github.com/ethereum/go-ethereum/common"

const MAINNET_API_URL = "https://api.hyperliquid.xyz"
const TESTNET_API_URL = "https://api.hyperliquid-testnet.xyz"
const LOCAL_API_URL = "http://localhost:3001"

// MAX_PERP_PX_DECIMALS is the most decimal places a perp price may carry
// before the per-asset size-decimal allowance is subtracted.
const MAX_PERP_PX_DECIMALS = 6

// MAX_SPOT_PX_DECIMALS is the spot-market equivalent of MAX_PERP_PX_DECIMALS.
const MAX_SPOT_PX_DECIMALS = 8

// PX_SIGFIGS is the significant-figure cap the exchange enforces on prices.
const PX_SIGFIGS = 5

var ZERO_ADDRESS = common.Address{}
