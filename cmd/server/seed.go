// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package main

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/quest"
)

// demoAnchor is central Busan, where the demo catalog clusters.
func demoAnchor() *geo.Point {
	return &geo.Point{Lat: 35.1796, Lon: 129.0756}
}

// demoQuests is a small Busan catalog covering every category group,
// two night-view quests for the special slot, and a spread of rewards
// and completion counts so scoring has something to differentiate.
func demoQuests() []*quest.Quest {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []*quest.Quest{
		{
			ID: "busan-yongdusan", PlaceID: "place-yongdusan",
			Name: "용두산공원 산책", Description: "부산타워가 있는 도심 공원",
			Category: "공원", District: "중구",
			Location:     geo.Point{Lat: 35.1007, Lon: 129.0323},
			RewardPoints: 80, Completions: 320, Active: true,
			CreatedAt: base,
		},
		{
			ID: "busan-gamcheon", PlaceID: "place-gamcheon",
			Name: "감천문화마을 골목 투어", Description: "계단식 벽화 마을",
			Category: "문화마을", District: "사하구",
			Location:     geo.Point{Lat: 35.0975, Lon: 129.0106},
			RewardPoints: 120, Completions: 540, Active: true,
			CreatedAt: base.AddDate(0, 0, 3),
		},
		{
			ID: "busan-beomeosa", PlaceID: "place-beomeosa",
			Name: "범어사 참배", Description: "금정산 자락의 사찰",
			Category: "사찰", District: "금정구",
			Location:     geo.Point{Lat: 35.2840, Lon: 129.0686},
			RewardPoints: 100, Completions: 150, Active: true,
			CreatedAt: base.AddDate(0, 0, 5),
		},
		{
			ID: "busan-dongnae", PlaceID: "place-dongnae",
			Name: "동래읍성 역사 탐방", Description: "조선시대 읍성 유적지",
			Category: "역사유적", District: "동래구",
			Location:     geo.Point{Lat: 35.2140, Lon: 129.0847},
			RewardPoints: 110, Completions: 95, Active: true,
			CreatedAt: base.AddDate(0, 0, 7),
		},
		{
			ID: "busan-haeundae", PlaceID: "place-haeundae",
			Name: "해운대 해변 걷기", Description: "부산 대표 해수욕장",
			Category: "관광지", District: "해운대구",
			Location:     geo.Point{Lat: 35.1587, Lon: 129.1604},
			RewardPoints: 60, Completions: 800, Active: true,
			CreatedAt: base.AddDate(0, 0, 9),
		},
		{
			ID: "busan-gwangan-night", PlaceID: "place-gwangalli",
			Name: "광안리 야경 포인트", Description: "광안대교 야경명소",
			Category: "명소", District: "수영구",
			Location:     geo.Point{Lat: 35.1532, Lon: 129.1187},
			RewardPoints: 150, Completions: 410, Active: true, Metadata: "night_view",
			CreatedAt: base.AddDate(0, 0, 11),
		},
		{
			ID: "busan-hwangnyeongsan", PlaceID: "place-hwangnyeongsan",
			Name: "황령산 전망대", Description: "도심 야경 전망 명소",
			Category: "전망대", District: "부산진구",
			Location:     geo.Point{Lat: 35.1534, Lon: 129.0759},
			RewardPoints: 130, Completions: 220, Active: true, Metadata: "night_scene",
			CreatedAt: base.AddDate(0, 0, 13),
		},
		{
			ID: "busan-jagalchi", PlaceID: "place-jagalchi",
			Name: "자갈치시장 미션", Description: "수산시장 명소 탐방",
			Category: "명소", District: "중구",
			Location:     geo.Point{Lat: 35.0967, Lon: 129.0306},
			RewardPoints: 70, Completions: 600, Active: true,
			CreatedAt: base.AddDate(0, 0, 15),
		},
		{
			ID: "busan-unesco-temple", PlaceID: "place-haedong",
			Name: "해동용궁사 방문", Description: "바닷가 사찰",
			Category: "종교시설", District: "기장군",
			Location:     geo.Point{Lat: 35.1884, Lon: 129.2233},
			RewardPoints: 90, Completions: 340, Active: true,
			CreatedAt: base.AddDate(0, 0, 17),
		},
		{
			ID: "busan-citizens-park", PlaceID: "place-citizens-park",
			Name: "부산시민공원 피크닉", Description: "도심 녹지 광장",
			Category: "광장", District: "부산진구",
			Location:     geo.Point{Lat: 35.1663, Lon: 129.0595},
			RewardPoints: 50, Completions: 270, Active: true,
			CreatedAt: base.AddDate(0, 0, 19),
		},
	}
}

// seedDemoCatalog loads the demo set into the snapshot and, when a
// badger store is open, persists it so later starts hydrate normally.
func seedDemoCatalog(store *quest.MemoryStore, db *badger.DB) error {
	var catalog *quest.BadgerCatalog
	if db != nil {
		catalog = quest.NewBadgerCatalog(db)
	}

	for _, q := range demoQuests() {
		store.Upsert(q)
		if catalog != nil {
			if err := catalog.Put(context.Background(), q); err != nil {
				return fmt.Errorf("persist %s: %w", q.ID, err)
			}
		}
	}
	return nil
}
