// persistence/redis.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/connect4/models"
)

// Redis 存储实现，房间和玩家序列化为JSON存入键值
// Membership is tracked by a per-room set so ordered listing stays cheap.
type Redis struct {
	client *redis.Client
}

// NewRedis 创建Redis存储连接
func NewRedis(address, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client}, nil
}

func roomKey(roomID string) string        { return "room:" + roomID }
func playerKey(playerID string) string    { return "player:" + playerID }
func roomPlayersKey(roomID string) string { return "room:" + roomID + ":players" }

func (r *Redis) CreateRoom(room *models.Room) error {
	ctx := context.Background()
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, roomKey(room.ID), data, 0).Err()
}

func (r *Redis) GetRoom(roomID string) (*models.Room, error) {
	ctx := context.Background()
	data, err := r.client.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	room := &models.Room{}
	if err := json.Unmarshal(data, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (r *Redis) AddPlayer(player *models.Player) error {
	ctx := context.Background()
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, playerKey(player.ID), data, 0)
	pipe.SAdd(ctx, roomPlayersKey(player.RoomID), player.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return r.refreshPlayerCount(ctx, player.RoomID)
}

func (r *Redis) GetPlayer(playerID string) (*models.Player, error) {
	ctx := context.Background()
	data, err := r.client.Get(ctx, playerKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	player := &models.Player{}
	if err := json.Unmarshal(data, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (r *Redis) PlayersInRoom(roomID string) ([]*models.Player, error) {
	ctx := context.Background()
	ids, err := r.client.SMembers(ctx, roomPlayersKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		player, err := r.GetPlayer(id)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, player)
	}
	return result, nil
}

func (r *Redis) HumanPlayersByJoinOrder(roomID string) ([]*models.Player, error) {
	players, err := r.PlayersInRoom(roomID)
	if err != nil {
		return nil, err
	}

	humans := players[:0]
	for _, p := range players {
		if !p.IsComputer {
			humans = append(humans, p)
		}
	}
	sort.Slice(humans, func(i, j int) bool {
		return humans[i].JoinedAt.Before(humans[j].JoinedAt)
	})
	return humans, nil
}

// RemoveOrphanedPlayers 清理不在活跃房间中的玩家并修正房间人数
func (r *Redis) RemoveOrphanedPlayers() (int, error) {
	ctx := context.Background()
	removed := 0

	iter := r.client.Scan(ctx, 0, "player:*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		player := &models.Player{}
		if err := json.Unmarshal(data, player); err != nil {
			continue
		}

		room, err := r.GetRoom(player.RoomID)
		if err == nil && room.IsActive {
			continue
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, iter.Val())
		pipe.SRem(ctx, roomPlayersKey(player.RoomID), player.ID)
		if _, err := pipe.Exec(ctx); err == nil {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}

	roomIter := r.client.Scan(ctx, 0, "room:*", 0).Iterator()
	for roomIter.Next(ctx) {
		key := roomIter.Val()
		if strings.HasSuffix(key, ":players") {
			continue
		}
		_ = r.refreshPlayerCount(ctx, strings.TrimPrefix(key, "room:"))
	}
	return removed, roomIter.Err()
}

func (r *Redis) ResetAll() error {
	ctx := context.Background()
	for _, pattern := range []string{"room:*", "player:*"} {
		iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.client.Close()
}

// refreshPlayerCount 重新统计房间人数并写回房间记录
func (r *Redis) refreshPlayerCount(ctx context.Context, roomID string) error {
	room, err := r.GetRoom(roomID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	count, err := r.client.SCard(ctx, roomPlayersKey(roomID)).Result()
	if err != nil {
		return err
	}

	room.CurrentPlayers = int(count)
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, roomKey(roomID), data, 0).Err()
}
