package models

// Jalali (Solar Hijri) calendar arithmetic. Persian-locale display dates use
// the Jalali calendar, so FA timestamps need a real conversion, not just
// localized digits. This is the standard Khayyam-era break-point algorithm
// shared by the common jalaali implementations.

var jalaliBreaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181,
	1210, 1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// jalaliCal returns the leap number of the Jalali year jy and the Gregorian
// March day of its first of Farvardin. leap == 1 means the year has 366 days.
func jalaliCal(jy int) (leap, march int) {
	gy := jy + 621
	leapJ := -14
	jp := jalaliBreaks[0]
	var jump int

	for i := 1; i < len(jalaliBreaks); i++ {
		jm := jalaliBreaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp

	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}
	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march = 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap = ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return leap, march
}

// gregorianJDN returns the Julian day number of a Gregorian calendar date.
func gregorianJDN(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 + (153*((gm+9)%12)+2)/5 + gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

// toJalali converts a Gregorian date to its Jalali equivalent.
func toJalali(gy, gm, gd int) (jy, jm, jd int) {
	jy = gy - 621
	leap, march := jalaliCal(jy)

	k := gregorianJDN(gy, gm, gd) - gregorianJDN(gy, 3, march)
	if k >= 0 {
		if k <= 185 {
			return jy, 1 + k/31, k%31 + 1
		}
		k -= 186
	} else {
		jy--
		k += 179
		if leap == 1 {
			k++
		}
	}
	return jy, 7 + k/30, k%30 + 1
}
