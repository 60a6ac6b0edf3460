// Package statmap translates GameCenter play-level stat ids into named stats.
package statmap

import "fmt"

// Entry describes one stat id. Every field is credited Value (1 unless set);
// the play's yardage, if any, is credited to Yards.
type Entry struct {
	Category string
	Fields   []string
	Yards    string
	Value    float64
}

func e(cat, yds string, fields ...string) Entry {
	return Entry{Category: cat, Fields: fields, Yards: yds, Value: 1}
}

var ids = map[int]Entry{
	2:   e("punting", "", "punting_blk"),
	3:   e("team", "", "first_down", "rushing_first_down"),
	4:   e("team", "", "first_down", "passing_first_down"),
	5:   e("team", "", "first_down", "penalty_first_down"),
	6:   e("team", "", "third_down_att", "third_down_conv"),
	7:   e("team", "", "third_down_att", "third_down_failed"),
	8:   e("team", "", "fourth_down_att", "fourth_down_conv"),
	9:   e("team", "", "fourth_down_att", "fourth_down_failed"),
	10:  e("rushing", "rushing_yds", "rushing_att"),
	11:  e("rushing", "rushing_yds", "rushing_att", "rushing_tds"),
	12:  e("rushing", "rushing_yds"),
	13:  e("rushing", "rushing_yds", "rushing_tds"),
	14:  e("passing", "", "passing_att", "passing_incmp"),
	15:  e("passing", "passing_yds", "passing_att", "passing_cmp"),
	16:  e("passing", "passing_yds", "passing_att", "passing_cmp", "passing_tds"),
	19:  e("passing", "", "passing_att", "passing_incmp", "passing_int"),
	20:  e("passing", "passing_sk_yds", "passing_sk"),
	21:  e("receiving", "receiving_yds", "receiving_rec"),
	22:  e("receiving", "receiving_yds", "receiving_rec", "receiving_tds"),
	23:  e("receiving", "receiving_yds"),
	24:  e("receiving", "receiving_yds", "receiving_tds"),
	25:  e("defense", "defense_int_yds", "defense_int"),
	26:  e("defense", "defense_int_yds", "defense_int", "defense_tds", "defense_int_tds"),
	27:  e("defense", "defense_int_yds"),
	28:  e("defense", "defense_int_yds", "defense_tds", "defense_int_tds"),
	29:  e("punting", "punting_yds", "punting_tot"),
	30:  e("punting", "", "punting_i20"),
	31:  e("punting", "punting_yds", "punting_tot"),
	32:  e("punting", "punting_yds", "punting_tot", "punting_touchback"),
	33:  e("puntret", "puntret_yds", "puntret_tot"),
	34:  e("puntret", "puntret_yds", "puntret_tot", "puntret_tds"),
	35:  e("puntret", "puntret_yds"),
	36:  e("puntret", "puntret_yds", "puntret_tds"),
	37:  e("team", "", "puntret_oob"),
	38:  e("team", "", "puntret_downed"),
	39:  e("puntret", "", "puntret_fair"),
	40:  e("team", "", "puntret_touchback"),
	41:  e("kicking", "kicking_yds", "kicking_tot"),
	42:  e("kicking", "", "kicking_i20"),
	43:  e("kicking", "kicking_yds", "kicking_tot"),
	44:  e("kicking", "kicking_yds", "kicking_tot", "kicking_touchback"),
	45:  e("kickret", "kickret_yds", "kickret_ret"),
	46:  e("kickret", "kickret_yds", "kickret_ret", "kickret_tds"),
	47:  e("kickret", "kickret_yds"),
	48:  e("kickret", "kickret_yds", "kickret_tds"),
	49:  e("team", "", "kickret_oob"),
	50:  e("kickret", "", "kickret_fair"),
	51:  e("team", "", "kickret_touchback"),
	52:  e("fumbles", "", "fumbles_tot", "fumbles_forced"),
	53:  e("fumbles", "", "fumbles_tot", "fumbles_notforced"),
	54:  e("fumbles", "", "fumbles_oob"),
	55:  e("fumbles", "fumbles_rec_yds", "fumbles_rec"),
	56:  e("fumbles", "fumbles_rec_yds", "fumbles_rec", "fumbles_rec_tds"),
	57:  e("fumbles", "fumbles_rec_yds"),
	58:  e("fumbles", "fumbles_rec_yds", "fumbles_rec_tds"),
	59:  e("defense", "defense_frec_yds", "defense_frec"),
	60:  e("defense", "defense_frec_yds", "defense_frec", "defense_tds", "defense_frec_tds"),
	61:  e("defense", "defense_frec_yds"),
	62:  e("defense", "defense_frec_yds", "defense_tds", "defense_frec_tds"),
	63:  e("defense", "defense_misc_yds"),
	64:  e("defense", "defense_misc_yds", "defense_tds", "defense_misc_tds"),
	68:  e("team", "", "timeout"),
	69:  e("kicking", "kicking_fgmissed_yds", "kicking_fga", "kicking_fgmissed"),
	70:  e("kicking", "kicking_fgm_yds", "kicking_fga", "kicking_fgm"),
	71:  e("kicking", "kicking_fgmissed_yds", "kicking_fga", "kicking_fgmissed", "kicking_fgb"),
	72:  e("kicking", "", "kicking_xpa", "kicking_xpmade"),
	73:  e("kicking", "", "kicking_xpa", "kicking_xpmissed"),
	74:  e("kicking", "", "kicking_xpa", "kicking_xpmissed", "kicking_xpb"),
	75:  e("rushing", "", "rushing_twopta", "rushing_twoptm"),
	76:  e("rushing", "", "rushing_twopta", "rushing_twoptmissed"),
	77:  e("passing", "", "passing_twopta", "passing_twoptm"),
	78:  e("passing", "", "passing_twopta", "passing_twoptmissed"),
	79:  e("defense", "", "defense_tkl"),
	80:  e("defense", "", "defense_tkl", "defense_tkl_primary"),
	82:  e("defense", "", "defense_ast"),
	83:  e("defense", "defense_sk_yds", "defense_sk"),
	84:  {Category: "defense", Fields: []string{"defense_sk"}, Yards: "defense_sk_yds", Value: 0.5}, // split sack
	85:  e("defense", "", "defense_pass_def"),
	86:  e("defense", "", "defense_puntblk"),
	87:  e("defense", "", "defense_xpblk"),
	88:  e("defense", "", "defense_fgblk"),
	89:  e("defense", "", "defense_safe"),
	91:  e("defense", "", "defense_ffum"),
	93:  e("penalty", "penalty_yds", "penalty"),
	95:  e("team", "rushing_loss_yds", "rushing_loss"),
	102: e("team", "", "kicking_downed"),
	103: e("passing", "passing_sk_yds"),
	104: e("receiving", "", "receiving_twopta", "receiving_twoptm"),
	105: e("receiving", "", "receiving_twopta", "receiving_twoptmissed"),
	106: e("fumbles", "", "fumbles_lost"),
	107: e("kicking", "", "kicking_rec"),
	108: e("kicking", "", "kicking_rec", "kicking_rec_tds"),
	110: e("defense", "", "defense_qbhit"),
	111: e("passing", "passing_cmp_air_yds"),
	112: e("passing", "passing_incmp_air_yds"),
	113: e("receiving", "receiving_yac_yds"),
	115: e("receiving", "", "receiving_tar"),
	120: e("defense", "", "defense_tkl_loss"),
	301: e("team", "", "xp_aborted"),
	402: e("defense", "defense_tkl_loss_yds"),
	410: e("kicking", "kicking_all_yds"),
}

// Lookup returns the entry for a stat id.
func Lookup(id int) (Entry, bool) {
	en, ok := ids[id]
	return en, ok
}

// Values returns the named stats one occurrence of the stat id contributes.
func Values(id int, yards float64) (map[string]float64, error) {
	en, ok := ids[id]
	if !ok {
		return nil, fmt.Errorf("unknown stat id %d", id)
	}
	out := make(map[string]float64, len(en.Fields)+1)
	if en.Yards != "" {
		out[en.Yards] = yards
	}
	for _, f := range en.Fields {
		out[f] = en.Value
	}
	return out, nil
}
