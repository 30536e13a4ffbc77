package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dedis/raffle/beacon"
	"github.com/dedis/raffle/raffle"
	"github.com/dedis/raffle/utils"
	"go.dedis.ch/cothority/v3"
	"go.dedis.ch/kyber/v3/util/key"
	"go.dedis.ch/onet/v3"
	"go.dedis.ch/onet/v3/log"
	cli "gopkg.in/urfave/cli.v1"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "raffle"
	cliApp.Usage = "Interact with a raffle unit running on a conode roster"
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "roster, r",
			Usage: "group definition file of the roster",
		},
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug level from 0 to 5",
		},
	}
	cliApp.Commands = []cli.Command{
		{
			Name:      "setup",
			Usage:     "run the DKG and install the raffle configuration",
			ArgsUsage: "config.toml",
			Action:    setup,
		},
		{
			Name:      "enter",
			Usage:     "stake an amount with a fresh keypair",
			ArgsUsage: "amount",
			Action:    enter,
		},
		{
			Name:   "status",
			Usage:  "print the current round",
			Action: status,
		},
		{
			Name:   "upkeep",
			Usage:  "check the upkeep predicate and trigger selection if ready",
			Action: upkeep,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "trigger, t",
					Usage: "start the selection when the round is ready",
				},
			},
		},
		{
			Name:   "winners",
			Usage:  "list the archived winner records",
			Action: winners,
		},
		{
			Name:   "retry",
			Usage:  "retry a failed payout",
			Action: retry,
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.GlobalInt("debug"))
		return nil
	}
	err := cliApp.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func getRoster(c *cli.Context) (*onet.Roster, error) {
	path := c.GlobalString("roster")
	if path == "" {
		return nil, cli.NewExitError("roster file required, use -r", 1)
	}
	roster, err := utils.ReadRoster(path)
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return roster, nil
}

func setup(c *cli.Context) error {
	roster, err := getRoster(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return cli.NewExitError("setup needs a config file", 1)
	}
	cfg, err := readConfig(c.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	randCl := beacon.NewClient(roster)
	_, err = randCl.InitDKG()
	if err != nil {
		return cli.NewExitError(fmt.Errorf("DKG failed: %v", err), 1)
	}
	raffleCl := raffle.NewClient(roster)
	_, err = raffleCl.InitUnit(roster, cfg.MinEntry, cfg.interval(),
		cfg.Width, cfg.ArchivePath)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("InitUnit failed: %v", err), 1)
	}
	fmt.Println("raffle unit ready, min entry", cfg.MinEntry,
		"interval", cfg.interval())
	return nil
}

func enter(c *cli.Context) error {
	roster, err := getRoster(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return cli.NewExitError("enter needs an amount", 1)
	}
	var amount uint64
	_, err = fmt.Sscanf(c.Args().First(), "%d", &amount)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("bad amount: %v", err), 1)
	}
	pair := key.NewKeyPair(cothority.Suite)
	reply, err := raffle.NewClient(roster).Enter(pair.Public, pair.Private, amount)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("enter failed: %v", err), 1)
	}
	id, err := utils.PointToID(pair.Public)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Println("entered as", id)
	fmt.Println("entries:", reply.Entries, "- pool:", reply.PoolValue)
	return nil
}

func status(c *cli.Context) error {
	roster, err := getRoster(c)
	if err != nil {
		return err
	}
	info, err := raffle.NewClient(roster).RoundInfo()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Println("round:", info.Number)
	fmt.Println("state:", info.State)
	fmt.Println("pool:", info.PoolValue)
	fmt.Println("participants:", info.Participants)
	if info.LastWinner != "" {
		fmt.Println("last winner:", info.LastWinner)
	}
	fmt.Println("open since:", info.StartTime.Format(time.RFC3339))
	return nil
}

func upkeep(c *cli.Context) error {
	roster, err := getRoster(c)
	if err != nil {
		return err
	}
	cl := raffle.NewClient(roster)
	reply, err := cl.CheckReady()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Println("ready:", reply.Ready, "- state:", reply.State,
		"- pool:", reply.PoolValue,
		"- participants:", reply.Participants,
		"- elapsed:", reply.Elapsed)
	if !reply.Ready || !c.Bool("trigger") {
		return nil
	}
	sel, err := cl.StartSelection()
	if err != nil {
		return cli.NewExitError(fmt.Errorf("StartSelection failed: %v", err), 1)
	}
	fmt.Printf("selection started, token %x\n", sel.Token)
	return nil
}

func winners(c *cli.Context) error {
	roster, err := getRoster(c)
	if err != nil {
		return err
	}
	reply, err := raffle.NewClient(roster).GetWinners()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if len(reply.Records) == 0 {
		fmt.Println("no winners yet")
		return nil
	}
	for _, rec := range reply.Records {
		fmt.Printf("round %d: %s won %d at %s\n", rec.Round, rec.Winner,
			rec.Payout, time.Unix(rec.Timestamp, 0).Format(time.RFC3339))
	}
	return nil
}

func retry(c *cli.Context) error {
	roster, err := getRoster(c)
	if err != nil {
		return err
	}
	_, err = raffle.NewClient(roster).RetryPayout()
	if err != nil {
		return cli.NewExitError(fmt.Errorf("RetryPayout failed: %v", err), 1)
	}
	fmt.Println("payout completed")
	return nil
}
