package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	defaultRPCURL = "http://127.0.0.1:8545"
	tokenEnv      = "JUSCAT_RPC_TOKEN"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "stats":
		err = runSimple(args, "rewards_stats", nil)
	case "cycle-info":
		err = runCycleInfo(args)
	case "trigger-cycle":
		err = runTriggerCycle(args)
	case "set-budget":
		err = runSetBudget(args)
	case "set-cap":
		err = runSetCap(args)
	case "set-gate":
		err = runSetGate(args)
	case "withdraw":
		err = runWithdraw(args)
	case "has-access":
		err = runHasAccess(args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	rpcURL := fs.String("rpc", defaultRPCURL, "JSON-RPC endpoint of juscatd")
	return fs, rpcURL
}

func runSimple(args []string, method string, params interface{}) error {
	fs, rpcURL := newFlagSet(method)
	fs.Parse(args)
	return call(*rpcURL, method, params)
}

func runCycleInfo(args []string) error {
	fs, rpcURL := newFlagSet("cycle-info")
	cycle := fs.Uint64("cycle", 0, "Cycle identifier")
	fs.Parse(args)
	return call(*rpcURL, "rewards_cycleInfo", map[string]uint64{"cycle": *cycle})
}

func runTriggerCycle(args []string) error {
	fs, rpcURL := newFlagSet("trigger-cycle")
	caller := fs.String("caller", "", "Operator address")
	fs.Parse(args)
	return call(*rpcURL, "rewards_triggerCycle", map[string]string{"caller": *caller})
}

func runSetBudget(args []string) error {
	fs, rpcURL := newFlagSet("set-budget")
	caller := fs.String("caller", "", "Operator address")
	amount := fs.String("amount", "", "Budget for the next cycle (base-10 integer)")
	fs.Parse(args)
	return call(*rpcURL, "rewards_setNextBudget",
		map[string]string{"caller": *caller, "amount": *amount})
}

func runSetCap(args []string) error {
	fs, rpcURL := newFlagSet("set-cap")
	caller := fs.String("caller", "", "Operator address")
	cap := fs.Uint64("cap", 0, "Max submissions per actor per cycle")
	fs.Parse(args)
	return call(*rpcURL, "rewards_setCap",
		map[string]interface{}{"caller": *caller, "cap": *cap})
}

func runSetGate(args []string) error {
	fs, rpcURL := newFlagSet("set-gate")
	caller := fs.String("caller", "", "Operator address")
	required := fs.Bool("required", true, "Whether the access gate flag is set")
	fs.Parse(args)
	return call(*rpcURL, "rewards_setGateRequired",
		map[string]interface{}{"caller": *caller, "required": *required})
}

func runWithdraw(args []string) error {
	fs, rpcURL := newFlagSet("withdraw")
	caller := fs.String("caller", "", "Operator address")
	cycle := fs.Uint64("cycle", 0, "Closed cycle to withdraw")
	fs.Parse(args)
	return call(*rpcURL, "rewards_withdraw",
		map[string]interface{}{"caller": *caller, "cycle": *cycle})
}

func runHasAccess(args []string) error {
	fs, rpcURL := newFlagSet("has-access")
	actor := fs.String("actor", "", "Actor address to check")
	fs.Parse(args)
	return call(*rpcURL, "rewards_hasAccess", map[string]string{"actor": *actor})
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func call(rpcURL, method string, params interface{}) error {
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		request["params"] = []interface{}{params}
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, rpcURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv(tokenEnv); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s (code %d)", decoded.Error.Message, decoded.Error.Code)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, decoded.Result, "", "  "); err != nil {
		fmt.Println(string(decoded.Result))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func usage() {
	fmt.Println("juscatctl <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  stats           Show current cycle statistics")
	fmt.Println("  cycle-info      Show a cycle's budget and status")
	fmt.Println("  trigger-cycle   Close the current cycle and open the next")
	fmt.Println("  set-budget      Schedule the next cycle's reward budget")
	fmt.Println("  set-cap         Set the per-actor submission cap")
	fmt.Println("  set-gate        Set the advisory access-gate flag")
	fmt.Println("  withdraw        Withdraw the leftover budget of a closed cycle")
	fmt.Println("  has-access      Check an actor's access credential")
	fmt.Println()
	fmt.Printf("Mutating commands read the bearer token from %s.\n", tokenEnv)
}
