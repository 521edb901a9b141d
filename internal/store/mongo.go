package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements domain.Repository on MongoDB. Each player and each
// game is a single document; saves are conditional on the version field.
type MongoStore struct {
	client   *mongo.Client
	players  *mongo.Collection
	games    *mongo.Collection
	feedback *mongo.Collection
	counters *mongo.Collection
}

// ConnectMongo connects to uri, verifies the connection and ensures the
// indexes the store relies on.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetTimeout(timeout).
		SetConnectTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		players:  db.Collection("players"),
		games:    db.Collection("games"),
		feedback: db.Collection("feedback"),
		counters: db.Collection("counters"),
	}

	_, err = s.players.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo create player name index: %w", err)
	}
	for _, coll := range []*mongo.Collection{s.players, s.games} {
		_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{Keys: bson.D{{Key: "seq", Value: 1}}})
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo create %s seq index: %w", coll.Name(), err)
		}
	}
	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks that the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

type holdingDocument struct {
	Symbol   string `bson:"symbol"`
	Quantity int64  `bson:"quantity"`
}

type tradeDocument struct {
	ID       string               `bson:"id"`
	Symbol   string               `bson:"symbol"`
	Quantity int64                `bson:"quantity"`
	Price    primitive.Decimal128 `bson:"price"`
	Action   string               `bson:"action"`
	Date     time.Time            `bson:"date"`
}

type challengeDocument struct {
	Title     string `bson:"title"`
	Completed bool   `bson:"completed"`
}

type playerDocument struct {
	ID              string               `bson:"_id"`
	Name            string               `bson:"name"`
	Cash            primitive.Decimal128 `bson:"cash"`
	Holdings        []holdingDocument    `bson:"holdings"`
	Trades          []tradeDocument      `bson:"trades"`
	Watchlist       []string             `bson:"watchlist"`
	DailyChallenges []challengeDocument  `bson:"dailyChallenges"`
	Version         int64                `bson:"version"`
	CreatedAt       time.Time            `bson:"createdAt"`
	Seq             int64                `bson:"seq,omitempty"`
}

type gameDocument struct {
	ID          string     `bson:"_id"`
	Name        string     `bson:"name"`
	PlayerIDs   []string   `bson:"players"`
	StartTime   time.Time  `bson:"startTime"`
	EndTime     time.Time  `bson:"endTime"`
	Status      string     `bson:"status"`
	WinnerID    *string    `bson:"winner,omitempty"`
	ActivatedAt *time.Time `bson:"activatedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	Version     int64      `bson:"version"`
	CreatedAt   time.Time  `bson:"createdAt"`
	Seq         int64      `bson:"seq,omitempty"`
}

type feedbackDocument struct {
	ID        string    `bson:"_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

// CreatePlayer inserts p with version 1 and the next player sequence
// number, which fixes its place in ListPlayers.
func (s *MongoStore) CreatePlayer(ctx context.Context, p *domain.Player) error {
	doc, err := toPlayerDocument(p, 1)
	if err != nil {
		return err
	}
	if doc.Seq, err = s.nextSeq(ctx, "players"); err != nil {
		return err
	}
	if _, err := s.players.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPlayerNameTaken
		}
		return fmt.Errorf("insert player: %w", err)
	}
	p.Version = 1
	return nil
}

// FindPlayer loads the player with the given ID.
func (s *MongoStore) FindPlayer(ctx context.Context, id string) (*domain.Player, error) {
	return s.findPlayer(ctx, bson.M{"_id": id})
}

// FindPlayerByName loads the player with the given name.
func (s *MongoStore) FindPlayerByName(ctx context.Context, name string) (*domain.Player, error) {
	return s.findPlayer(ctx, bson.M{"name": name})
}

func (s *MongoStore) findPlayer(ctx context.Context, filter bson.M) (*domain.Player, error) {
	var doc playerDocument
	if err := s.players.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("find player: %w", err)
	}
	return fromPlayerDocument(doc)
}

// SavePlayer overwrites the player document if its stored version equals
// p.Version, then bumps p.Version. The sequence number is left untouched.
func (s *MongoStore) SavePlayer(ctx context.Context, p *domain.Player) error {
	doc, err := toPlayerDocument(p, p.Version+1)
	if err != nil {
		return err
	}
	res, err := s.players.UpdateOne(ctx, bson.M{"_id": p.ID, "version": p.Version}, bson.M{"$set": doc})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrPlayerNameTaken
		}
		return fmt.Errorf("replace player: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missOrConflict(ctx, s.players, p.ID, domain.ErrPlayerNotFound)
	}
	p.Version++
	return nil
}

// ListPlayers returns every player in registration order.
func (s *MongoStore) ListPlayers(ctx context.Context) ([]*domain.Player, error) {
	cur, err := s.players.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	var docs []playerDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}

	out := make([]*domain.Player, 0, len(docs))
	for _, d := range docs {
		p, err := fromPlayerDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CreateGame inserts g with version 1 and the next game sequence number.
func (s *MongoStore) CreateGame(ctx context.Context, g *domain.Game) error {
	doc := toGameDocument(g, 1)
	seq, err := s.nextSeq(ctx, "games")
	if err != nil {
		return err
	}
	doc.Seq = seq
	if _, err := s.games.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	g.Version = 1
	return nil
}

// FindGame loads the game with the given ID.
func (s *MongoStore) FindGame(ctx context.Context, id string) (*domain.Game, error) {
	var doc gameDocument
	if err := s.games.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("find game: %w", err)
	}
	return fromGameDocument(doc), nil
}

// SaveGame overwrites the game document if its stored version equals
// g.Version, then bumps g.Version.
func (s *MongoStore) SaveGame(ctx context.Context, g *domain.Game) error {
	res, err := s.games.UpdateOne(ctx, bson.M{"_id": g.ID, "version": g.Version}, bson.M{"$set": toGameDocument(g, g.Version+1)})
	if err != nil {
		return fmt.Errorf("replace game: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missOrConflict(ctx, s.games, g.ID, domain.ErrGameNotFound)
	}
	g.Version++
	return nil
}

// ListGames returns every game in creation order.
func (s *MongoStore) ListGames(ctx context.Context) ([]*domain.Game, error) {
	cur, err := s.games.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	var docs []gameDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode games: %w", err)
	}

	out := make([]*domain.Game, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromGameDocument(d))
	}
	return out, nil
}

// CreateFeedback inserts a feedback entry.
func (s *MongoStore) CreateFeedback(ctx context.Context, f *domain.Feedback) error {
	_, err := s.feedback.InsertOne(ctx, feedbackDocument{ID: f.ID, Content: f.Content, CreatedAt: f.CreatedAt})
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// nextSeq atomically increments and returns the named counter. BSON dates
// only keep milliseconds, so list order cannot rely on createdAt.
func (s *MongoStore) nextSeq(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return counter.Seq, nil
}

// missOrConflict tells a missing document apart from a stale version after
// a conditional replace matched nothing.
func (s *MongoStore) missOrConflict(ctx context.Context, coll *mongo.Collection, id string, notFound error) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	if n == 0 {
		return notFound
	}
	return domain.ErrVersionConflict
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func toPlayerDocument(p *domain.Player, version int64) (playerDocument, error) {
	cash, err := toDecimal128(p.Cash)
	if err != nil {
		return playerDocument{}, err
	}
	doc := playerDocument{
		ID:              p.ID,
		Name:            p.Name,
		Cash:            cash,
		Holdings:        make([]holdingDocument, 0, len(p.Holdings)),
		Trades:          make([]tradeDocument, 0, len(p.Trades)),
		Watchlist:       append([]string{}, p.Watchlist...),
		DailyChallenges: make([]challengeDocument, 0, len(p.DailyChallenges)),
		Version:         version,
		CreatedAt:       p.CreatedAt,
	}
	for _, h := range p.Holdings {
		doc.Holdings = append(doc.Holdings, holdingDocument{Symbol: h.Symbol, Quantity: h.Quantity})
	}
	for _, t := range p.Trades {
		price, err := toDecimal128(t.Price)
		if err != nil {
			return playerDocument{}, err
		}
		doc.Trades = append(doc.Trades, tradeDocument{
			ID:       t.ID,
			Symbol:   t.Symbol,
			Quantity: t.Quantity,
			Price:    price,
			Action:   string(t.Action),
			Date:     t.Date,
		})
	}
	for _, c := range p.DailyChallenges {
		doc.DailyChallenges = append(doc.DailyChallenges, challengeDocument{Title: c.Title, Completed: c.Completed})
	}
	return doc, nil
}

func fromPlayerDocument(doc playerDocument) (*domain.Player, error) {
	cash, err := fromDecimal128(doc.Cash)
	if err != nil {
		return nil, err
	}
	p := &domain.Player{
		ID:              doc.ID,
		Name:            doc.Name,
		Cash:            cash,
		Holdings:        make([]domain.Holding, 0, len(doc.Holdings)),
		Trades:          make([]domain.Trade, 0, len(doc.Trades)),
		Watchlist:       append([]string{}, doc.Watchlist...),
		DailyChallenges: make([]domain.DailyChallenge, 0, len(doc.DailyChallenges)),
		Version:         doc.Version,
		CreatedAt:       doc.CreatedAt,
	}
	for _, h := range doc.Holdings {
		p.Holdings = append(p.Holdings, domain.Holding{Symbol: h.Symbol, Quantity: h.Quantity})
	}
	for _, t := range doc.Trades {
		price, err := fromDecimal128(t.Price)
		if err != nil {
			return nil, err
		}
		p.Trades = append(p.Trades, domain.Trade{
			ID:       t.ID,
			Symbol:   t.Symbol,
			Quantity: t.Quantity,
			Price:    price,
			Action:   domain.TradeAction(t.Action),
			Date:     t.Date,
		})
	}
	for _, c := range doc.DailyChallenges {
		p.DailyChallenges = append(p.DailyChallenges, domain.DailyChallenge{Title: c.Title, Completed: c.Completed})
	}
	return p, nil
}

func toGameDocument(g *domain.Game, version int64) gameDocument {
	return gameDocument{
		ID:          g.ID,
		Name:        g.Name,
		PlayerIDs:   append([]string{}, g.PlayerIDs...),
		StartTime:   g.StartTime,
		EndTime:     g.EndTime,
		Status:      string(g.Status),
		WinnerID:    g.WinnerID,
		ActivatedAt: g.ActivatedAt,
		CompletedAt: g.CompletedAt,
		Version:     version,
		CreatedAt:   g.CreatedAt,
	}
}

func fromGameDocument(doc gameDocument) *domain.Game {
	return &domain.Game{
		ID:          doc.ID,
		Name:        doc.Name,
		PlayerIDs:   append([]string{}, doc.PlayerIDs...),
		StartTime:   doc.StartTime,
		EndTime:     doc.EndTime,
		Status:      domain.GameStatus(doc.Status),
		WinnerID:    doc.WinnerID,
		ActivatedAt: doc.ActivatedAt,
		CompletedAt: doc.CompletedAt,
		Version:     doc.Version,
		CreatedAt:   doc.CreatedAt,
	}
}
