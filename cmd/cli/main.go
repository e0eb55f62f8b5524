package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fxledger-cli",
		Short: "FxLedger CLI tool",
		Long:  `A command line interface for interacting with the FxLedger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the FxLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(transactionCmd())
	rootCmd.AddCommand(vaultTransferCmd())
	rootCmd.AddCommand(rateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Balance operations",
	}

	var currency string
	getCmd := &cobra.Command{
		Use:   "get <holder-id>",
		Short: "Show balances for a holder",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := "/api/v1/holders/" + args[0] + "/balances"
			if currency != "" {
				path += "/" + currency
			}
			getJSON(path)
		},
	}
	getCmd.Flags().StringVar(&currency, "currency", "", "Limit to one currency")

	historyCmd := &cobra.Command{
		Use:   "history <holder-id> <currency>",
		Short: "Show the mutation trail for a balance",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/holders/" + args[0] + "/balances/" + args[1] + "/history")
		},
	}

	cmd.AddCommand(getCmd, historyCmd)
	return cmd
}

func transactionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txn",
		Short: "Transaction operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/transactions/" + args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <branch-id>",
		Short: "List transactions for a branch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/branches/" + args[0] + "/transactions")
		},
	}

	var actorID string
	completeCmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a transaction and apply its balance effects",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			postJSON("/api/v1/transactions/"+args[0]+"/complete", map[string]string{"actor_id": actorID})
		},
	}
	completeCmd.Flags().StringVar(&actorID, "actor", "", "User completing the transaction")

	cmd.AddCommand(getCmd, listCmd, completeCmd)
	return cmd
}

func vaultTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault-transfer",
		Short: "Vault transfer operations",
	}

	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List vault transfers",
		Run: func(cmd *cobra.Command, args []string) {
			path := "/api/v1/vault-transfers"
			if status != "" {
				path += "?status=" + status
			}
			getJSON(path)
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")

	cmd.AddCommand(listCmd)
	return cmd
}

func rateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <from> <to>",
		Short: "Show the latest exchange rate for a currency pair",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/rates/" + args[0] + "/" + args[1])
		},
	}
}

func getJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func postJSON(path string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("Error encoding payload: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	// A fresh key per invocation; rerunning the command is a new request.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func printResponse(resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, truncate(string(body), 500))
		os.Exit(1)
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}
	printJSON(data)
}

func printJSON(data any) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
