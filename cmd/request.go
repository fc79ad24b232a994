/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/HappyCodeDog/fix-gateway/gateway"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type requestOptions struct {
	brokerID      string
	tradeReportID string
	requestType   string
	timeout       time.Duration
}

func newRequestCmd(root *rootOptions) *cobra.Command {
	opts := &requestOptions{}

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send one trade capture report request and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			app, err := wireApp(*root)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, app.close()) }()

			res, err := app.requestOnce(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			if err := writeResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("request failed: %s", res.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.brokerID, "broker", "b", "", "broker id (default: first configured broker)")
	cmd.Flags().StringVar(&opts.tradeReportID, "report-id", "", "TradeReportID (571) to request")
	cmd.Flags().StringVar(&opts.requestType, "type", "", "TradeRequestType (569), default 0 (all trades)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "response timeout (default: gateway.request_timeout)")
	return cmd
}

// requestOnce starts the sessions, waits for the target session to log on and
// sends a single request.
func (a *app) requestOnce(ctx context.Context, opts requestOptions) (gateway.Result, error) {
	if err := a.orchestrator.Start(a.profiles()); err != nil {
		return gateway.Result{}, fmt.Errorf("start sessions: %w", err)
	}

	brokerID := opts.brokerID
	if brokerID == "" {
		id, ok := a.orchestrator.FirstBrokerID()
		if !ok {
			return gateway.Result{}, gateway.ErrNoBrokerConfigured
		}
		brokerID = id
	}

	rs, err := a.orchestrator.Resolve(brokerID)
	if err != nil {
		return gateway.Result{}, &gateway.SessionNotFoundError{BrokerID: brokerID, Err: err}
	}

	logonCtx, cancel := context.WithTimeout(ctx, a.cfg.Gateway.LogonWait)
	defer cancel()
	if err := a.fixApp.WaitForLogon(logonCtx, rs.SessionID); err != nil {
		return gateway.Result{}, fmt.Errorf("session %s did not log on within %s: %w", rs.SessionID, a.cfg.Gateway.LogonWait, err)
	}

	if opts.timeout > 0 {
		report, err := a.gateway.Send(ctx, brokerID, gateway.TradeCaptureRequest{
			TradeReportID:    opts.tradeReportID,
			TradeRequestType: opts.requestType,
		}, opts.timeout)
		return gateway.ResultOf(brokerID, report, err), nil
	}
	return a.gateway.RequestReport(ctx, brokerID, opts.tradeReportID, opts.requestType), nil
}

func writeResult(w io.Writer, res gateway.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
