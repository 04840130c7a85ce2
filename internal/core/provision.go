package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"satcore/internal/celestrak"
	"satcore/internal/logging"
	"satcore/pkg/domain"
	"satcore/pkg/domain/entitymodel"
)

// SeedSatellite describes one satellite and the instruments it carries.
type SeedSatellite struct {
	Name          string
	CatalogNumber int64
	Instruments   []SeedInstrument
}

// SeedInstrument pairs an instrument with its OceanColor sensor and data type.
type SeedInstrument struct {
	Name     string
	SensorID int64
	DataID   int64
}

// DefaultSeed is the fleet provisioned by Provision.
var DefaultSeed = []SeedSatellite{
	{Name: "Terra", CatalogNumber: 25994, Instruments: []SeedInstrument{{Name: "MODIS", SensorID: 8, DataID: 1102}}},
	{Name: "Aqua", CatalogNumber: 27424, Instruments: []SeedInstrument{{Name: "MODIS", SensorID: 7, DataID: 1062}}},
	{Name: "Sentinel-3A", CatalogNumber: 41335, Instruments: []SeedInstrument{{Name: "OLCI", SensorID: 29, DataID: 1267}}},
}

// ProvisionOptions tunes Provision.
type ProvisionOptions struct {
	// Seed defaults to DefaultSeed.
	Seed []SeedSatellite
	// TLE, when set, supplies orbital elements for newly created satellites.
	// Lookup failures are logged and the satellite is stored without elements.
	TLE    celestrak.Source
	Logger *slog.Logger
}

// ProvisionReport counts the rows Provision created.
type ProvisionReport struct {
	Satellites           int
	Instruments          int
	SatelliteInstruments int
	Mappings             int
}

// Provision seeds repos idempotently. Satellites and instruments match on
// name, pairs on their two references and mappings on pair plus sensor and
// data ids, so running it again creates nothing.
func Provision(ctx context.Context, repos *Repositories, opts ProvisionOptions) (ProvisionReport, error) {
	seed := opts.Seed
	if seed == nil {
		seed = DefaultSeed
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	p := &provisioner{repos: repos, tle: opts.TLE, logger: logger.With("component", "provision")}
	if err := p.load(ctx); err != nil {
		return ProvisionReport{}, err
	}
	for _, s := range seed {
		satID, err := p.satellite(ctx, s)
		if err != nil {
			return p.report, err
		}
		for _, inst := range s.Instruments {
			instID, err := p.instrument(ctx, inst.Name)
			if err != nil {
				return p.report, err
			}
			pairID, err := p.pair(ctx, satID, instID)
			if err != nil {
				return p.report, err
			}
			if err := p.mapping(ctx, pairID, inst.SensorID, inst.DataID); err != nil {
				return p.report, err
			}
		}
	}
	p.logger.Info("provisioning finished",
		"satellites", p.report.Satellites, "instruments", p.report.Instruments,
		"satellite_instruments", p.report.SatelliteInstruments, "mappings", p.report.Mappings)
	return p.report, nil
}

type pairKey struct{ sat, inst domain.ID }

type mappingKey struct {
	pair           domain.ID
	sensor, dataID int64
}

type provisioner struct {
	repos  *Repositories
	tle    celestrak.Source
	logger *slog.Logger
	report ProvisionReport

	satellites  map[string]domain.ID
	instruments map[string]domain.ID
	pairs       map[pairKey]domain.ID
	mappings    map[mappingKey]struct{}
}

func (p *provisioner) load(ctx context.Context) error {
	p.satellites = map[string]domain.ID{}
	p.instruments = map[string]domain.ID{}
	p.pairs = map[pairKey]domain.ID{}
	p.mappings = map[mappingKey]struct{}{}

	sats, err := p.repos.Satellites.List(ctx)
	if err != nil {
		return fmt.Errorf("list satellites: %w", err)
	}
	for _, s := range sats {
		id, _ := s.ID()
		p.satellites[s.Name()] = id
	}
	insts, err := p.repos.Instruments.List(ctx)
	if err != nil {
		return fmt.Errorf("list instruments: %w", err)
	}
	for _, i := range insts {
		id, _ := i.ID()
		p.instruments[i.Name()] = id
	}
	pairs, err := p.repos.SatelliteInstruments.List(ctx)
	if err != nil {
		return fmt.Errorf("list satellite instruments: %w", err)
	}
	for _, si := range pairs {
		id, _ := si.ID()
		p.pairs[pairKey{si.Satellite().ID, si.Instrument().ID}] = id
	}
	maps, err := p.repos.OceanColorMappings.List(ctx)
	if err != nil {
		return fmt.Errorf("list ocean color mappings: %w", err)
	}
	for _, m := range maps {
		p.mappings[mappingKey{m.SatelliteInstrument().ID, m.SensorID(), m.DataID()}] = struct{}{}
	}
	return nil
}

func (p *provisioner) satellite(ctx context.Context, s SeedSatellite) (domain.ID, error) {
	if id, ok := p.satellites[s.Name]; ok {
		return id, nil
	}
	var line1, line2 string
	if p.tle != nil {
		tle, err := celestrak.Lookup(ctx, p.tle, s.CatalogNumber)
		if err != nil {
			p.logger.Warn("tle lookup failed, storing satellite without elements",
				"satellite", s.Name, "catalog_number", s.CatalogNumber, logging.ErrorChain(err))
		} else {
			line1, line2 = tle.Line1, tle.Line2
		}
	}
	catnr := sql.Null[int64]{V: s.CatalogNumber, Valid: s.CatalogNumber > 0}
	id, err := p.repos.Satellites.Add(ctx, entitymodel.NewSatellite(s.Name, catnr, line1, line2))
	if err != nil {
		return 0, fmt.Errorf("add satellite %s: %w", s.Name, err)
	}
	p.satellites[s.Name] = id
	p.report.Satellites++
	return id, nil
}

func (p *provisioner) instrument(ctx context.Context, name string) (domain.ID, error) {
	if id, ok := p.instruments[name]; ok {
		return id, nil
	}
	id, err := p.repos.Instruments.Add(ctx, entitymodel.NewInstrument(name))
	if err != nil {
		return 0, fmt.Errorf("add instrument %s: %w", name, err)
	}
	p.instruments[name] = id
	p.report.Instruments++
	return id, nil
}

func (p *provisioner) pair(ctx context.Context, sat, inst domain.ID) (domain.ID, error) {
	key := pairKey{sat, inst}
	if id, ok := p.pairs[key]; ok {
		return id, nil
	}
	id, err := p.repos.SatelliteInstruments.Add(ctx, entitymodel.NewSatelliteInstrument(
		domain.RefTo[entitymodel.Satellite](sat), domain.RefTo[entitymodel.Instrument](inst)))
	if err != nil {
		return 0, fmt.Errorf("add satellite instrument %s/%s: %w", sat, inst, err)
	}
	p.pairs[key] = id
	p.report.SatelliteInstruments++
	return id, nil
}

func (p *provisioner) mapping(ctx context.Context, pair domain.ID, sensor, dataID int64) error {
	key := mappingKey{pair, sensor, dataID}
	if _, ok := p.mappings[key]; ok {
		return nil
	}
	if _, err := p.repos.OceanColorMappings.Add(ctx, entitymodel.NewOceanColorMapping(
		domain.RefTo[entitymodel.SatelliteInstrument](pair), sensor, dataID)); err != nil {
		return fmt.Errorf("add ocean color mapping %d/%d: %w", sensor, dataID, err)
	}
	p.mappings[key] = struct{}{}
	p.report.Mappings++
	return nil
}
