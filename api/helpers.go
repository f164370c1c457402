package api

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	psload "github.com/shirou/gopsutil/load"
	psmem "github.com/shirou/gopsutil/mem"
	psnet "github.com/shirou/gopsutil/net"
	"go.vocdoni.io/tokenvote/election"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/httprouter/apirest"
	"go.vocdoni.io/tokenvote/util"
)

const (
	healthMemMax   = 100
	healthLoadMax  = 10
	healthSocksMax = 10000
)

func sendJSON(ctx *httprouter.HTTPContext, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrMarshalingServerJSONFail.WithErr(err)
	}
	return ctx.Send(data, apirest.HTTPstatusOK)
}

// parseAddress parses a 20 bytes hex encoded address, with or without 0x.
func parseAddress(s string) (common.Address, error) {
	if !util.IsHexEncodedStringWithLength(s, common.AddressLength) {
		return common.Address{}, ErrAddressMalformed.With(s)
	}
	return common.HexToAddress(s), nil
}

func parseCandidateID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrCantParseCandidateID.With(s)
	}
	return id, nil
}

func parsePage(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(s)
	if err != nil || page < 0 {
		return 0, ErrCantParsePageNumber.With(s)
	}
	return page, nil
}

func candidateFromEngine(c *election.Candidate) *Candidate {
	return &Candidate{ID: c.ID, Name: c.Name, VoteCount: c.VoteCount}
}

// getHealth returns a number between 0 and 99 representing the load of the
// host, as bigger the better. Memory usage, 15 minutes load average and
// open tcp sockets weight the same.
func getHealth() (int32, error) {
	v, err := psmem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	l, err := psload.Avg()
	if err != nil {
		return 0, err
	}
	n, err := psnet.Connections("tcp")
	if err != nil {
		return 0, err
	}
	memUsed := min(v.UsedPercent, healthMemMax)
	load15 := min(l.Load15, healthLoadMax)
	sockets := min(float64(len(n)), healthSocksMax)
	result := int32((1 - (0.33*(memUsed/healthMemMax) +
		0.33*(load15/healthLoadMax) +
		0.33*(sockets/healthSocksMax))) * 100)
	if result < 0 || result >= 100 {
		return 0, fmt.Errorf("expected health to be between 0 and 99: %d", result)
	}
	return result, nil
}
