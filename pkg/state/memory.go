package state

import (
	"context"
	"slices"

	"github.com/Sumatoshi-tech/tripstat/pkg/aggregate"
)

// MemoryRepository keeps state in memory. It follows the same naming and
// supersede rules as FileRepository and is meant for tests.
type MemoryRepository struct {
	Price        Loaded[aggregate.PriceRatio]
	Distribution Loaded[aggregate.Distribution]
	Prefix       string
	SeriesName   string
	Series       []aggregate.Indicator
	Commits      int
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{Prefix: DefaultPrefix}
}

// LoadPriceAggregate implements Repository.
func (m *MemoryRepository) LoadPriceAggregate(ctx context.Context) (Loaded[aggregate.PriceRatio], error) {
	return m.Price, ctx.Err()
}

// LoadDistribution implements Repository.
func (m *MemoryRepository) LoadDistribution(ctx context.Context) (Loaded[aggregate.Distribution], error) {
	l := m.Distribution
	if l.Value != nil {
		d := l.Value.Clone()
		l.Value = &d
	}

	return l, ctx.Err()
}

// LoadSeriesHandle implements Repository.
func (m *MemoryRepository) LoadSeriesHandle(ctx context.Context) (SeriesHandle, error) {
	if m.SeriesName == "" {
		return SeriesHandle{}, ctx.Err()
	}

	return SeriesHandle{Name: m.SeriesName, Dates: seriesDates(m.Series)}, ctx.Err()
}

// LoadSeries implements Reader.
func (m *MemoryRepository) LoadSeries(ctx context.Context) ([]aggregate.Indicator, error) {
	return slices.Clone(m.Series), ctx.Err()
}

// Commit implements Repository.
func (m *MemoryRepository) Commit(ctx context.Context, u Update) (Published, error) {
	err := ctx.Err()
	if err != nil {
		return Published{}, err
	}

	pub := Published{Names: make(map[Kind]string, len(Kinds))}

	retire := func(kind Kind, prior string) {
		if prior != "" && prior != pub.Names[kind] {
			pub.Retired = append(pub.Retired, prior)
		}
	}

	if u.Price.Empty() {
		m.Price = Loaded[aggregate.PriceRatio]{}
	} else {
		price := u.Price
		name := ObjectName(u.Date, m.Prefix, KindPrice)
		m.Price = Loaded[aggregate.PriceRatio]{Value: &price, Name: name}
		pub.Names[KindPrice] = name
	}

	dist := u.Distribution.Clone()
	name := ObjectName(u.Date, m.Prefix, KindDistribution)
	m.Distribution = Loaded[aggregate.Distribution]{Value: &dist, Name: name}
	pub.Names[KindDistribution] = name

	if !u.Series.Exists() {
		m.Series = nil
	}

	m.Series = append(m.Series, u.Indicator)
	m.SeriesName = ObjectName(u.Date, m.Prefix, KindSeries)
	pub.Names[KindSeries] = m.SeriesName

	retire(KindPrice, u.Supersedes[KindPrice])
	retire(KindDistribution, u.Supersedes[KindDistribution])
	retire(KindSeries, u.Series.Name)

	m.Commits++

	return pub, nil
}
